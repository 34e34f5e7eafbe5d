package ports

import "context"

// TitleResolver resuelve el título humano de un mercado a partir de su
// condition id. Las implementaciones pueden cachear.
type TitleResolver interface {
	ResolveTitle(ctx context.Context, conditionID string) (string, error)
}
