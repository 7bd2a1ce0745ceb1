package core

import (
	"strings"
	"testing"
)

// fixedLine lays values out at the given column offsets, padding with spaces.
func fixedLine(layout Layout, values ...string) string {
	var b []rune
	for i, v := range values {
		for len(b) < layout[i] {
			b = append(b, ' ')
		}
		b = append(b, []rune(v)...)
	}
	return string(b)
}

var testLayout = Layout{0, 14, 40, 60, 72, 96}

func testHeader() string {
	return fixedLine(testLayout, Columns[:]...)
}

func TestDetectLayout(t *testing.T) {
	got := DetectLayout(testHeader())
	if got.Source != LayoutDetected {
		t.Fatalf("Source = %v, want detected", got.Source)
	}
	if got.Layout != testLayout {
		t.Errorf("Layout = %v, want %v", got.Layout, testLayout)
	}
}

func TestDetectLayoutMissingLabelFallsBack(t *testing.T) {
	header := strings.Replace(testHeader(), ColRepLiqEstadoConsulta, "Estado              ", 1)
	got := DetectLayout(header)
	if got.Source != LayoutFallback {
		t.Errorf("Source = %v, want fallback", got.Source)
	}
	if got.Layout != FallbackLayout {
		t.Errorf("Layout = %v, want whole fallback %v", got.Layout, FallbackLayout)
	}
}

func TestDetectLayoutCountsCharacters(t *testing.T) {
	// A two-byte character in the padding must not shift later offsets.
	r := []rune(testHeader())
	r[10] = 'ñ'
	header := string(r)
	got := DetectLayout(header)
	if got.Source != LayoutDetected || got.Layout != testLayout {
		t.Errorf("DetectLayout = %+v, want %v", got, testLayout)
	}
}

func TestParseLine(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		want   Record
		wantOK bool
	}{
		{
			name: "full line",
			line: fixedLine(testLayout, "0990000001001", "ACME S.A.", "ACME", "2023-05-01", "RECHAZADO", "RUC no existe"),
			want: Record{
				EmpRUC:               "0990000001001",
				EmpRazonSocial:       "ACME S.A.",
				EmpNom:               "ACME",
				RepFecha:             "2023-05-01",
				RepLiqEstadoConsulta: "RECHAZADO",
				RepDetalleRechazo:    "RUC no existe",
			},
			wantOK: true,
		},
		{
			name:   "short line leaves later fields empty",
			line:   fixedLine(testLayout, "0990000001001", "ACME"),
			want:   Record{EmpRUC: "0990000001001", EmpRazonSocial: "ACME"},
			wantOK: true,
		},
		{
			name:   "empty first field is dropped",
			line:   fixedLine(testLayout, "", "ACME"),
			wantOK: false,
		},
		{
			name: "multibyte fields stay aligned",
			line: fixedLine(testLayout, "1790000002001", "Compañía Ñandú", "Ñandú", "2024-01-31", "OBSERVADO", "Razón inválida"),
			want: Record{
				EmpRUC:               "1790000002001",
				EmpRazonSocial:       "Compañía Ñandú",
				EmpNom:               "Ñandú",
				RepFecha:             "2024-01-31",
				RepLiqEstadoConsulta: "OBSERVADO",
				RepDetalleRechazo:    "Razón inválida",
			},
			wantOK: true,
		},
		{
			name:   "mojibake repaired",
			line:   fixedLine(testLayout, "1790000002001", "MÃ©xico Ltda"),
			want:   Record{EmpRUC: "1790000002001", EmpRazonSocial: "México Ltda"},
			wantOK: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseLine(tt.line, testLayout)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("ParseLine() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseLineInvalidLayout(t *testing.T) {
	// Offsets out of range or out of order never panic.
	layout := Layout{0, 500, 3, 2, 1000, -1}
	got, ok := ParseLine("ABCDEFGHIJ", layout)
	if !ok {
		t.Fatal("expected record")
	}
	if got.EmpRUC != "ABCDEFGHIJ" {
		t.Errorf("EmpRUC = %q", got.EmpRUC)
	}
}

func TestParseReportEndToEnd(t *testing.T) {
	content := strings.Join([]string{
		testHeader(),
		fixedLine(testLayout, "0990000001001", "ACME S.A.", "ACME", "2023-05-01", "RECHAZADO", "RUC no existe"),
		strings.Repeat("-", 120),
	}, "\n")

	res := ParseReport(content)
	if len(res.Records) != 1 {
		t.Fatalf("records = %d, want 1", len(res.Records))
	}
	if res.Headers != 1 {
		t.Errorf("Headers = %d, want 1", res.Headers)
	}
	if res.LastLayout.Source != LayoutDetected {
		t.Errorf("LastLayout.Source = %v, want detected", res.LastLayout.Source)
	}
	if got := res.Records[0].RepDetalleRechazo; got != "RUC no existe" {
		t.Errorf("detail = %q", got)
	}
}

func TestParseReportDetails(t *testing.T) {
	data := fixedLine(testLayout, "0990000001001", "ACME", "ACME", "2023-05-01", "RECHAZADO", "x")
	fallbackData := fixedLine(FallbackLayout, "1790000021", "BETA", "BETA", "2023-06-01", "RECHAZADO", "y")

	content := "\ufeff" + fallbackData + "\r\n" +
		"\r\n" +
		"   " + "\r\n" +
		testHeader() + "\r" +
		"----- ----- -----\n" +
		"\x00" + data + "\x00\n" +
		fixedLine(testLayout, "", "NO RUC") + "\n"

	// The BOM is stripped by DecodePayload, not ParseReport.
	text, _ := DecodePayload([]byte(content))
	res := ParseReport(text)

	if len(res.Records) != 2 {
		t.Fatalf("records = %d, want 2: %+v", len(res.Records), res.Records)
	}
	if res.Records[0].EmpRUC != "1790000021" || res.Records[0].RepDetalleRechazo != "y" {
		t.Errorf("fallback record = %+v", res.Records[0])
	}
	if res.Records[1].EmpRUC != "0990000001001" || res.Records[1].RepDetalleRechazo != "x" {
		t.Errorf("detected record = %+v", res.Records[1])
	}
	if res.Dropped != 1 {
		t.Errorf("Dropped = %d, want 1", res.Dropped)
	}
}

func TestParseReportEmpty(t *testing.T) {
	res := ParseReport("")
	if len(res.Records) != 0 || res.LastLayout.Source != LayoutFallback {
		t.Errorf("ParseReport(\"\") = %+v", res)
	}
}

func TestParseReportHeaderMissingLabelUsesFallback(t *testing.T) {
	header := strings.Replace(testHeader(), ColEmpNom, "Nombre", 1)
	line := fixedLine(FallbackLayout, "0990000011", "ACME S.A.", "ACME", "2023-05-01", "RECHAZADO", "RUC no existe")

	res := ParseReport(header + "\n" + line)
	if res.LastLayout.Source != LayoutFallback {
		t.Fatalf("LastLayout.Source = %v, want fallback", res.LastLayout.Source)
	}
	if len(res.Records) != 1 || res.Records[0].EmpNom != "ACME" {
		t.Errorf("records = %+v", res.Records)
	}
}
