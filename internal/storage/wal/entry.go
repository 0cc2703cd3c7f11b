// Пакет wal — журнал намерений для операций, меняющих имя файла в хранилище.
//
// Импорт и переименование сначала записывают намерение (источник и цель)
// со статусом pending, затем выполняют операцию с файлом, затем фиксируют
// или откатывают запись. После сбоя pending записи разбираются при старте.
// Каждая запись — отдельный файл {tx_id}.wal.json в директории журнала.
package wal

import (
	"time"
)

// OperationType — тип операции, записываемой в журнал.
type OperationType string

const (
	// OpImport — копирование источника в хранилище
	OpImport OperationType = "import"
	// OpRename — перемещение файла документа под новым именем
	OpRename OperationType = "rename"
)

// TransactionStatus — статус записи журнала.
type TransactionStatus string

const (
	StatusPending    TransactionStatus = "pending"
	StatusCommitted  TransactionStatus = "committed"
	StatusRolledBack TransactionStatus = "rolled_back"
)

// Entry — запись журнала.
type Entry struct {
	TransactionID string            `json:"transaction_id"`
	Operation     OperationType     `json:"operation"`
	Status        TransactionStatus `json:"status"`

	// DocumentID — документ, над которым выполняется операция
	DocumentID string `json:"document_id"`

	// Source — исходный путь (файл источника или текущее расположение документа)
	Source string `json:"source"`

	// Target — путь назначения в хранилище
	Target string `json:"target"`

	StartedAt time.Time `json:"started_at"`

	// CompletedAt — nil для pending записей
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

const fileSuffix = ".wal.json"

// walFileName возвращает имя файла журнала для транзакции.
func walFileName(txID string) string {
	return txID + fileSuffix
}
