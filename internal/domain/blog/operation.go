package blog

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// OpType вид отложенной мутации
type OpType string

const (
	OpCreate OpType = "create"
	OpUpdate OpType = "update"
	OpDelete OpType = "delete"
)

func (t OpType) Valid() bool {
	switch t {
	case OpCreate, OpUpdate, OpDelete:
		return true
	}
	return false
}

// Operation запись очереди синхронизации. Data хранит снимок сущности на момент
// постановки в очередь; Key дублирует ее идентификатор для поиска по сущности.
type Operation struct {
	ID         string          `json:"id" yaml:"id"`
	Type       OpType          `json:"type" yaml:"type"`
	Entity     Kind            `json:"entity" yaml:"entity"`
	Key        int64           `json:"key" yaml:"key"`
	Data       json.RawMessage `json:"data" yaml:"-"`
	Timestamp  int64           `json:"timestamp" yaml:"timestamp"`
	RetryCount int             `json:"retryCount" yaml:"retryCount"`
	LastError  string          `json:"lastError,omitempty" yaml:"lastError,omitempty"`
	Seq        int64           `json:"-" yaml:"-"`
}

// NewOperation создает операцию с новым уникальным идентификатором и нулевым счетчиком попыток.
func NewOperation[T Entity[T]](typ OpType, e T, now int64) (Operation, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return Operation{}, fmt.Errorf("marshal %s payload: %w", e.Kind(), err)
	}
	return Operation{
		ID:        uuid.NewString(),
		Type:      typ,
		Entity:    e.Kind(),
		Key:       e.Key(),
		Data:      data,
		Timestamp: now,
	}, nil
}

// Decode разбирает снимок сущности из операции.
func Decode[T Entity[T]](op Operation) (T, error) {
	var e T
	if err := json.Unmarshal(op.Data, &e); err != nil {
		return e, fmt.Errorf("decode %s payload of operation %s: %w", op.Entity, op.ID, err)
	}
	return e, nil
}
