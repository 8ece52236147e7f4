package blog

import "context"

// Remote граница с сервером. Реализация не повторяет запросы: ошибки возвращаются
// вызывающему как есть, обернутые в ErrRemote. out заполняется разобранным телом ответа.
type Remote interface {
	Create(ctx context.Context, kind Kind, body, out any) error
	Update(ctx context.Context, kind Kind, id int64, body, out any) error
	Delete(ctx context.Context, kind Kind, id int64) error
	List(ctx context.Context, kind Kind, out any) error
}
