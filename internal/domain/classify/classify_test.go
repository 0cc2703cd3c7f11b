package classify

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bigkaa/goartstore/docvault/internal/domain/model"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		file string
		want model.Category
	}{
		{"паспорт в середине имени", "My_Passport_scan.pdf", model.CategoryPassports},
		{"identity", "National IDENTITY card.png", model.CategoryPassports},
		{"id как подстрока", "video.mp4", model.CategoryPassports},
		{"резюме", "resume-2024.docx", model.CategoryCertificates},
		{"cv", "Ivan CV.pdf", model.CategoryCertificates},
		{"сертификат", "aws-certificate.pdf", model.CategoryCertificates},
		{"налоги", "tax_return.pdf", model.CategoryTax},
		{"счёт", "Invoice 42.pdf", model.CategoryTax},
		{"чек", "receipt.jpg", model.CategoryTax},
		{"права", "driving.jpg", model.CategoryDriver},
		{"license", "LICENSE.txt", model.CategoryDriver},
		{"без совпадений", "notes.txt", model.CategoryOther},
		{"пустое имя", "", model.CategoryOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.file))
		})
	}
}

// Первое совпавшее правило побеждает: passport раньше receipt.
func TestClassify_PriorityOrder(t *testing.T) {
	assert.Equal(t, model.CategoryPassports, Classify("passport receipt.pdf"))
	assert.Equal(t, model.CategoryCertificates, Classify("certificate tax.pdf"))
	assert.Equal(t, model.CategoryTax, Classify("tax license.pdf"))
}

func TestTypeHintFor(t *testing.T) {
	tests := []struct {
		file   string
		want   model.TypeHint
		wantOK bool
	}{
		{"scan.pdf", model.TypePDF, true},
		{"scan.PDF", model.TypePDF, true},
		{"photo.jpeg", model.TypeImage, true},
		{"photo_1.HEIC", model.TypeImage, true},
		{"report.docx", model.TypeOffice, true},
		{"notes.txt", model.TypeText, true},
		{"archive.zip", model.TypeGeneric, true},
		{"archive.tar.gz", model.TypeGeneric, true},
		{"README", "", false},
		{".profile", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			got, ok := TypeHintFor(tt.file)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtension(t *testing.T) {
	assert.Equal(t, "pdf", Extension("/vault/a b.pdf"))
	assert.Equal(t, "gz", Extension("a.tar.gz"))
	assert.Equal(t, "", Extension("noext"))
	assert.Equal(t, "", Extension(".hidden"))
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "application/pdf", ContentType("a.PDF"))
	assert.Equal(t, "image/jpeg", ContentType("photo.jpg"))
	assert.Equal(t, "application/octet-stream", ContentType("blob.zzqx"))
	assert.True(t, strings.HasPrefix(ContentType("page.HTML"), "text/html"),
		"расширения вне таблицы берутся из базы mime")
	assert.Equal(t, "application/octet-stream", ContentType("noext"))
}
