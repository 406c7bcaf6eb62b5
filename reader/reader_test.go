package reader_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"testing"

	"github.com/jung-kurt/gofpdf"

	"github.com/lvillar/pagekit"
	"github.com/lvillar/pagekit/reader"
)

// generateTestPDF creates a simple PDF with the given text content using gofpdf.
func generateTestPDF(t *testing.T, texts ...string) []byte {
	t.Helper()
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Helvetica", "", 12)

	for _, text := range texts {
		pdf.AddPage()
		pdf.Text(10, 20, text)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		t.Fatalf("generating test PDF: %v", err)
	}
	return buf.Bytes()
}

// rawPDF assembles numbered object bodies (1-based) behind a classic
// cross-reference table. startxref may be overridden to simulate damage.
func rawPDF(objects []string, trailerExtra string, badStartXRef bool) []byte {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.7\n")
	offsets := make([]int, len(objects))
	for i, body := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R %s >>\n", len(objects)+1, trailerExtra)
	if badStartXRef {
		xref += 7
	}
	fmt.Fprintf(&buf, "startxref\n%d\n%%%%EOF\n", xref)
	return buf.Bytes()
}

func TestOpenRoundTrip(t *testing.T) {
	data := generateTestPDF(t, "Hello World", "Page Two")

	doc, err := reader.ReadFrom(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("reading PDF: %v", err)
	}

	if doc.NumPages() != 2 {
		t.Errorf("expected 2 pages, got %d", doc.NumPages())
	}

	if doc.Version == "" {
		t.Error("expected non-empty PDF version")
	}
}

func TestPageAccess(t *testing.T) {
	data := generateTestPDF(t, "First", "Second", "Third")

	doc, err := reader.ReadFrom(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("reading PDF: %v", err)
	}

	for i := 1; i <= 3; i++ {
		page, err := doc.Page(i)
		if err != nil {
			t.Errorf("page %d: %v", i, err)
			continue
		}
		if page.Number != i {
			t.Errorf("page %d: number = %d", i, page.Number)
		}
		// A4 MediaBox should be approximately 595 x 842
		if page.MediaBox.Width() < 500 || page.MediaBox.Height() < 700 {
			t.Errorf("page %d: unexpected MediaBox: %v", i, page.MediaBox)
		}
		if page.Ref.Number == 0 {
			t.Errorf("page %d: missing object reference", i)
		}
	}

	if _, err := doc.Page(0); !errors.Is(err, pagekit.ErrOutOfRange) {
		t.Errorf("page 0: expected ErrOutOfRange, got %v", err)
	}
	if _, err := doc.Page(4); !errors.Is(err, pagekit.ErrOutOfRange) {
		t.Errorf("page 4: expected ErrOutOfRange, got %v", err)
	}
}

func TestPagesIterator(t *testing.T) {
	data := generateTestPDF(t, "A", "B")

	doc, err := reader.ReadFrom(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("reading PDF: %v", err)
	}

	count := 0
	for num, page := range doc.Pages() {
		count++
		if page.Number != num {
			t.Errorf("iterator: page.Number=%d, num=%d", page.Number, num)
		}
	}
	if count != 2 {
		t.Errorf("iterator: expected 2 iterations, got %d", count)
	}
}

func TestMetadata(t *testing.T) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Test Document", false)
	pdf.SetAuthor("Zoë Müller", true)
	pdf.SetFont("Helvetica", "", 12)
	pdf.AddPage()
	pdf.Text(10, 20, "Metadata test")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		t.Fatalf("generating PDF: %v", err)
	}

	doc, err := reader.ReadFrom(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("reading PDF: %v", err)
	}

	meta := doc.Metadata()
	if meta["Title"] != "Test Document" {
		t.Errorf("Title = %q, want %q", meta["Title"], "Test Document")
	}
	if meta["Author"] != "Zoë Müller" {
		t.Errorf("Author = %q, want %q", meta["Author"], "Zoë Müller")
	}
}

func TestDecodeText(t *testing.T) {
	utf16 := []byte{0xFE, 0xFF, 0x00, 'H', 0x00, 0xE9}
	if got := reader.DecodeText(utf16); got != "Hé" {
		t.Errorf("UTF-16: got %q", got)
	}
	if got := reader.DecodeText([]byte{'c', 0xE9}); got != "cé" {
		t.Errorf("Latin-1: got %q", got)
	}
}

func TestContentStream(t *testing.T) {
	data := generateTestPDF(t, "Page 1 content")

	doc, err := reader.ReadFrom(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("reading PDF: %v", err)
	}

	page, err := doc.Page(1)
	if err != nil {
		t.Fatalf("getting page: %v", err)
	}

	content, err := page.ContentStream()
	if err != nil {
		t.Fatalf("getting content stream: %v", err)
	}
	if !bytes.Contains(content, []byte("Page 1 content")) {
		t.Errorf("content stream does not contain the page text: %q", content)
	}
}

func TestInheritedAttributes(t *testing.T) {
	data := rawPDF([]string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R 4 0 R] /Count 2 /MediaBox [0 0 200 300] /Rotate -90 /Resources << >> >>",
		"<< /Type /Page /Parent 2 0 R >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 100 50] /Rotate 540 >>",
	}, "", false)

	doc, err := reader.ReadFrom(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("reading PDF: %v", err)
	}
	if doc.NumPages() != 2 {
		t.Fatalf("expected 2 pages, got %d", doc.NumPages())
	}

	p1, _ := doc.Page(1)
	if p1.MediaBox.Width() != 200 || p1.MediaBox.Height() != 300 {
		t.Errorf("page 1 MediaBox = %+v, want 200x300", p1.MediaBox)
	}
	if p1.Rotate != 270 {
		t.Errorf("page 1 Rotate = %d, want 270", p1.Rotate)
	}
	if _, ok := p1.Attr("Resources"); !ok {
		t.Error("page 1 should inherit /Resources")
	}
	if _, ok := p1.Dict()["MediaBox"]; ok {
		t.Error("page dictionary should not be modified by inheritance")
	}

	p2, _ := doc.Page(2)
	if p2.MediaBox.Width() != 100 {
		t.Errorf("page 2 MediaBox = %+v, want own box", p2.MediaBox)
	}
	if p2.Rotate != 180 {
		t.Errorf("page 2 Rotate = %d, want 180", p2.Rotate)
	}
}

func TestRebuildDamagedXRef(t *testing.T) {
	data := rawPDF([]string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >>",
	}, "", true)

	doc, err := reader.ReadFrom(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("reading damaged PDF: %v", err)
	}
	if doc.NumPages() != 1 {
		t.Errorf("expected 1 page, got %d", doc.NumPages())
	}
}

func TestEncryptedRejected(t *testing.T) {
	data := rawPDF([]string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [] /Count 0 >>",
	}, "/Encrypt << /Filter /Standard >>", false)

	_, err := reader.ReadFrom(bytes.NewReader(data))
	if !errors.Is(err, pagekit.ErrEncrypted) {
		t.Fatalf("expected ErrEncrypted, got %v", err)
	}
}

func TestPageTreeCycle(t *testing.T) {
	data := rawPDF([]string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [2 0 R] /Count 1 >>",
	}, "", false)

	if _, err := reader.ReadFrom(bytes.NewReader(data)); err == nil {
		t.Fatal("expected error for cyclic page tree")
	}
}

func TestNotPDF(t *testing.T) {
	if _, err := reader.ReadFrom(bytes.NewReader([]byte("hello"))); err == nil {
		t.Fatal("expected error for non-PDF input")
	}
}

func TestObjectStreamWithXRefStream(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.7\n")
	offsets := map[int]int{}

	write := func(num int, body string) {
		offsets[num] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", num, body)
	}
	write(1, "<< /Type /Catalog /Pages 2 0 R >>")
	write(2, "<< /Type /Pages /Kids [3 0 R] /Count 1 /MediaBox [0 0 400 400] >>")

	// Object 3 lives in object stream 4.
	header := "3 0 "
	body := "<< /Type /Page /Parent 2 0 R >>"
	objStm := header + body
	write(4, fmt.Sprintf("<< /Type /ObjStm /N 1 /First %d /Length %d >>\nstream\n%s\nendstream", len(header), len(objStm), objStm))

	// Cross-reference stream, object 5, /W [1 4 2].
	xrefOff := buf.Len()
	var entries bytes.Buffer
	entry := func(kind byte, f2 uint32, f3 uint16) {
		entries.WriteByte(kind)
		binary.Write(&entries, binary.BigEndian, f2)
		binary.Write(&entries, binary.BigEndian, f3)
	}
	entry(0, 0, 65535)
	entry(1, uint32(offsets[1]), 0)
	entry(1, uint32(offsets[2]), 0)
	entry(2, 4, 0)
	entry(1, uint32(offsets[4]), 0)
	entry(1, uint32(xrefOff), 0)
	fmt.Fprintf(&buf, "5 0 obj\n<< /Type /XRef /Size 6 /W [1 4 2] /Root 1 0 R /Length %d >>\nstream\n", entries.Len())
	buf.Write(entries.Bytes())
	fmt.Fprintf(&buf, "\nendstream\nendobj\nstartxref\n%d\n%%%%EOF\n", xrefOff)

	doc, err := reader.ReadFrom(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("reading PDF: %v", err)
	}
	if doc.NumPages() != 1 {
		t.Fatalf("expected 1 page, got %d", doc.NumPages())
	}
	page, _ := doc.Page(1)
	if page.MediaBox.Width() != 400 {
		t.Errorf("MediaBox = %+v, want 400x400", page.MediaBox)
	}
	if page.Ref.Number != 3 {
		t.Errorf("page ref = %v, want 3 0 R", page.Ref)
	}
}

func TestNormalizeRotation(t *testing.T) {
	tests := []struct{ in, want int }{
		{0, 0}, {90, 90}, {360, 0}, {-90, 270}, {450, 90}, {45, 0},
	}
	for _, tt := range tests {
		if got := reader.NormalizeRotation(tt.in); got != tt.want {
			t.Errorf("NormalizeRotation(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
