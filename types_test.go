package docgen

import (
	"encoding/base64"
	"errors"
	"testing"
)

func TestParseOutputFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{in: "html", want: FormatHTML},
		{in: "PDF", want: FormatPDF},
		{in: " pdf ", want: FormatPDF},
		{in: "xml", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseOutputFormat(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrUnsupportedFormat) {
				t.Errorf("ParseOutputFormat(%q) error = %v, want ErrUnsupportedFormat", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseOutputFormat(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
	}
}

func TestOutputFormat_ContentType(t *testing.T) {
	t.Parallel()

	if got := FormatPDF.ContentType(); got != "application/pdf" {
		t.Errorf("FormatPDF.ContentType() = %q", got)
	}
	if got := (&Artifact{Format: FormatHTML}).ContentType(); got != "text/html; charset=utf-8" {
		t.Errorf("Artifact.ContentType() = %q", got)
	}
}

func TestDecodeLayout(t *testing.T) {
	t.Parallel()

	const src = "<p>Hello {{name}}</p>"

	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "standard", in: base64.StdEncoding.EncodeToString([]byte(src)), want: src},
		{name: "unpadded", in: base64.RawStdEncoding.EncodeToString([]byte(src)), want: src},
		{name: "url-safe", in: base64.URLEncoding.EncodeToString([]byte("<p>?>>~</p>")), want: "<p>?>>~</p>"},
		{name: "surrounding whitespace", in: "\n" + base64.StdEncoding.EncodeToString([]byte(src)) + " ", want: src},
		{name: "empty", in: "", wantErr: true},
		{name: "not base64", in: "<p>raw html</p>", wantErr: true},
		{name: "decodes to whitespace", in: base64.StdEncoding.EncodeToString([]byte("   ")), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := DecodeLayout(tt.in)
			if tt.wantErr {
				if KindOf(err) != KindValidation {
					t.Errorf("DecodeLayout() error = %v, want validation error", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeLayout() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("DecodeLayout() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDecodeData(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		in       string
		wantKeys []string
		wantErr  bool
	}{
		{name: "object", in: `{"name":"Ada","items":[1,2]}`, wantKeys: []string{"name", "items"}},
		{name: "JSON string holding an object", in: `"{\"name\":\"Ada\"}"`, wantKeys: []string{"name"}},
		{name: "absent", in: ``},
		{name: "null", in: `null`},
		{name: "empty string", in: `""`},
		{name: "array", in: `[1,2,3]`, wantErr: true},
		{name: "string that is not JSON", in: `"hello"`, wantErr: true},
		{name: "number", in: `42`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := DecodeData([]byte(tt.in))
			if tt.wantErr {
				if KindOf(err) != KindValidation {
					t.Errorf("DecodeData() error = %v, want validation error", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeData() error = %v", err)
			}
			if got == nil {
				t.Fatal("DecodeData() returned nil map")
			}
			if len(got) != len(tt.wantKeys) {
				t.Errorf("DecodeData() = %v, want keys %v", got, tt.wantKeys)
			}
			for _, k := range tt.wantKeys {
				if _, ok := got[k]; !ok {
					t.Errorf("DecodeData() missing key %q", k)
				}
			}
		})
	}
}
