// Пакет lifecycle — конечный автомат жизненного цикла документа.
//
// Состояния:
//   - active — документ виден, доступен для поиска и изменений
//   - trashed — документ в корзине, файл остаётся на месте
//   - purged — документ удалён безвозвратно (конечное состояние)
//
// Переходы: active → trashed (trash), trashed → active (restore),
// trashed → purged (purge). Других путей завершения нет.
package lifecycle

import (
	"fmt"
	"sort"

	"github.com/bigkaa/goartstore/docvault/internal/domain/model"
)

// State — состояние документа.
type State string

const (
	StateActive  State = "active"
	StateTrashed State = "trashed"
	StatePurged  State = "purged"
)

// Operation — операция над документом.
type Operation string

const (
	OpView            Operation = "view"
	OpRename          Operation = "rename"
	OpLock            Operation = "lock"
	OpUnlock          Operation = "unlock"
	OpTemporaryUnlock Operation = "temporary_unlock"
	OpShare           Operation = "share"
	OpTrash           Operation = "trash"
	OpRestore         Operation = "restore"
	OpPurge           Operation = "purge"
)

// Коды ошибок переходов.
const (
	CodeInvalidTransition   = "INVALID_TRANSITION"
	CodeOperationNotAllowed = "OPERATION_NOT_ALLOWED"
)

// validTransitions — матрица допустимых переходов.
// Ключ — текущее состояние, значение — операция → целевое состояние.
var validTransitions = map[State]map[Operation]State{
	StateActive:  {OpTrash: StateTrashed},
	StateTrashed: {OpRestore: StateActive, OpPurge: StatePurged},
	StatePurged:  {}, // Конечное состояние
}

// allowedOperations — матрица допустимых операций для каждого состояния.
var allowedOperations = map[State]map[Operation]bool{
	StateActive: {
		OpView: true, OpRename: true, OpLock: true, OpUnlock: true,
		OpTemporaryUnlock: true, OpShare: true, OpTrash: true,
	},
	StateTrashed: {OpRestore: true, OpPurge: true},
	StatePurged:  {},
}

// StateOf возвращает состояние документа по коллекции каталога.
func StateOf(c model.Collection) State {
	switch c {
	case model.CollectionActive:
		return StateActive
	case model.CollectionTrashed:
		return StateTrashed
	default:
		return StatePurged
	}
}

// CanPerform проверяет, допустима ли операция в состоянии s.
func CanPerform(s State, op Operation) bool {
	return allowedOperations[s][op]
}

// Check возвращает TransitionError, если операция недопустима в состоянии s.
func Check(s State, op Operation) error {
	if CanPerform(s, op) {
		return nil
	}
	return &TransitionError{
		Code:    CodeOperationNotAllowed,
		Message: fmt.Sprintf("операция %s недоступна в состоянии %s", op, s),
	}
}

// Next возвращает состояние после перехода op из s.
func Next(s State, op Operation) (State, error) {
	target, ok := validTransitions[s][op]
	if !ok {
		return s, &TransitionError{
			Code:    CodeInvalidTransition,
			Message: fmt.Sprintf("переход %s через %s недопустим", s, op),
		}
	}
	return target, nil
}

// AllowedOperations возвращает отсортированный список операций, доступных в состоянии s.
func AllowedOperations(s State) []Operation {
	ops := allowedOperations[s]
	result := make([]Operation, 0, len(ops))
	for op := range ops {
		result = append(result, op)
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}

// TransitionError — ошибка перехода жизненного цикла.
type TransitionError struct {
	Code    string // Машиночитаемый код (INVALID_TRANSITION, OPERATION_NOT_ALLOWED)
	Message string // Человекочитаемое описание
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}
