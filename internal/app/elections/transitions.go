package elections

import "github.com/marcelojr/e-voting/internal/domain"

// transitions lista, para cada status, os destinos aceitos no modo estrito.
// Auto-transições ficam liberadas para que fechar/arquivar sejam idempotentes.
var transitions = map[domain.ElectionStatus][]domain.ElectionStatus{
	domain.StatusDraft:     {domain.StatusDraft, domain.StatusPublished, domain.StatusOpen},
	domain.StatusPublished: {domain.StatusPublished, domain.StatusOpen},
	domain.StatusOpen:      {domain.StatusOpen, domain.StatusClosed},
	domain.StatusClosed:    {domain.StatusClosed, domain.StatusArchived},
	domain.StatusArchived:  {domain.StatusArchived},
}

// CanTransition informa se from→to é aceito pela tabela estrita.
func CanTransition(from, to domain.ElectionStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// allowedSources devolve os status de origem que podem levar a `to`.
// Nil significa "qualquer origem".
func allowedSources(to domain.ElectionStatus, strict bool) []domain.ElectionStatus {
	if !strict {
		if to == domain.StatusDraft {
			return []domain.ElectionStatus{domain.StatusDraft}
		}
		return nil
	}

	var from []domain.ElectionStatus
	for _, s := range []domain.ElectionStatus{
		domain.StatusDraft, domain.StatusPublished, domain.StatusOpen, domain.StatusClosed, domain.StatusArchived,
	} {
		if CanTransition(s, to) {
			from = append(from, s)
		}
	}
	return from
}
