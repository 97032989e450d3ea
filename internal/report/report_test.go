package report

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"example.com/wiblgate/internal/common"
	"example.com/wiblgate/internal/timeline"
	"example.com/wiblgate/internal/wibl"
)

func init() {
	common.SetLogger(nil)
}

func writeLoggerFile(t *testing.T) string {
	t.Helper()
	packets := []wibl.Packet{
		&wibl.SerialiserVersion{Header: wibl.Header{Elapsed: wibl.ElapsedUnset}, Major: 1, Minor: 0},
		&wibl.Metadata{Header: wibl.Header{Elapsed: wibl.ElapsedUnset}, LoggerName: "L1", UniqueID: "S1"},
		&wibl.GNSS{Header: wibl.Header{Elapsed: 0}, MsgDate: 19000, MsgTime: 0, Latitude: 43, Longitude: -70},
		&wibl.Depth{Header: wibl.Header{Elapsed: 500}, Depth: 10},
		&wibl.GNSS{Header: wibl.Header{Elapsed: 1000}, MsgDate: 19000, MsgTime: 1, Latitude: 44, Longitude: -71},
	}
	var buf bytes.Buffer
	for _, p := range packets {
		wire, err := wibl.Encode(p)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		buf.Write(wire)
	}
	path := filepath.Join(t.TempDir(), "survey.wibl")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func processed(t *testing.T) (string, *timeline.Result, *timeline.Engine) {
	t.Helper()
	path := writeLoggerFile(t)
	eng := timeline.NewEngine(timeline.Options{})
	res, err := eng.ProcessFile(path)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	return path, res, eng
}

func TestBuildSummary(t *testing.T) {
	path, res, eng := processed(t)
	s, err := BuildSummary(path, res, eng)
	if err != nil {
		t.Fatalf("build summary: %v", err)
	}
	if s.File != path || s.SizeBytes <= 0 || len(s.Sha256) != 64 {
		t.Fatalf("file fields = %q %d %q", s.File, s.SizeBytes, s.Sha256)
	}
	hex, size, err := common.Sha256OfFile(path)
	if err != nil {
		t.Fatalf("rehash: %v", err)
	}
	if s.Sha256 != hex || s.SizeBytes != size {
		t.Fatal("summary digest disagrees with source file")
	}
	if s.LoggerName != "L1" || s.Platform != "S1" || s.LoggerVersion != "1.0" {
		t.Fatalf("identity = %q/%q/%q", s.LoggerName, s.Platform, s.LoggerVersion)
	}
	if s.TimeSource != "GNSS" || s.TotalPackets != 5 {
		t.Fatalf("timeSource/packets = %q/%d", s.TimeSource, s.TotalPackets)
	}
	if s.Channels.Depth != 1 || s.Channels.Heading != 0 {
		t.Fatalf("channels = %+v", s.Channels)
	}
}

func TestSummaryJSONRoundTrip(t *testing.T) {
	path, res, eng := processed(t)
	s, err := BuildSummary(path, res, eng)
	if err != nil {
		t.Fatalf("build summary: %v", err)
	}
	out := filepath.Join(t.TempDir(), "summary.json")
	if err := SaveSummaryJSON(s, out); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := LoadSummaryJSON(out)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Sha256 != s.Sha256 || got.TimeSource != s.TimeSource || got.TotalPackets != s.TotalPackets {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, s)
	}
}

func TestSaveSummaryPDF(t *testing.T) {
	path, res, eng := processed(t)
	s, err := BuildSummary(path, res, eng)
	if err != nil {
		t.Fatalf("build summary: %v", err)
	}
	out := filepath.Join(t.TempDir(), "summary.pdf")
	if err := SaveSummaryPDF(s, out); err != nil {
		t.Fatalf("save pdf: %v", err)
	}
	info, err := os.Stat(out)
	if err != nil || info.Size() == 0 {
		t.Fatalf("pdf output missing or empty: %v", err)
	}
}

func TestDigestToQR(t *testing.T) {
	png, err := DigestToQR("ab12cd34", 128)
	if err != nil {
		t.Fatalf("qr: %v", err)
	}
	if len(png) == 0 {
		t.Fatal("empty png")
	}
	if _, err := DigestToQR("", 128); err == nil {
		t.Fatal("empty hash accepted")
	}
	if _, err := DigestToQR("zz--!!", 128); err == nil {
		t.Fatal("hash with no hex characters accepted")
	}
}

func TestSanitizeHash(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{" ab12cd ", "AB12CD"},
		{"AB:12:cd", "AB12CD"},
		{"xyz", ""},
	}
	for _, tc := range cases {
		if got := sanitizeHash(tc.in); got != tc.want {
			t.Fatalf("sanitizeHash(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
