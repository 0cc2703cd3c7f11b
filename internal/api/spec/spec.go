// Пакет spec — встроенный OpenAPI контракт API хранилища документов.
// Контракт загружается и валидируется kin-openapi при старте и
// отдаётся клиентам по /api/v1/openapi.json.
package spec

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed openapi.yaml
var rawSpec []byte

// Raw возвращает исходный YAML контракта.
func Raw() []byte {
	return rawSpec
}

// Load разбирает и валидирует встроенный контракт.
func Load(ctx context.Context) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	loader.Context = ctx

	doc, err := loader.LoadFromData(rawSpec)
	if err != nil {
		return nil, fmt.Errorf("ошибка разбора OpenAPI контракта: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("невалидный OpenAPI контракт: %w", err)
	}
	return doc, nil
}

// HasOperation проверяет, что контракт описывает method для path.
// path — шаблон маршрута в форме chi (/api/v1/documents/{id}).
func HasOperation(doc *openapi3.T, method, path string) bool {
	item := doc.Paths.Find(path)
	if item == nil {
		return false
	}
	return item.GetOperation(method) != nil
}
