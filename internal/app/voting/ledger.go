// Pacote voting é o livro de votos: registro único por eleitor, histórico e apuração.
package voting

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/marcelojr/e-voting/internal/domain"
	"github.com/marcelojr/e-voting/internal/platform/ids"
	"github.com/marcelojr/e-voting/internal/platform/logger"
)

const turnoutTTL = 5 * time.Minute

// CounterKeyTurnout é a chave do cache de comparecimento, antes do prefixo do Contador.
func CounterKeyTurnout(id domain.ElectionID) string {
	return fmt.Sprintf("eleicao:%s:comparecimento", id)
}

// Ledger não decide duplicidade: quem garante um voto por (eleição, eleitor) é o índice único.
type Ledger struct {
	votos    domain.VoteRepository
	contador domain.Contador
	clock    domain.Clock
	ids      *ids.Generator
	log      *slog.Logger
}

// NewLedger aceita contador nulo; nesse caso o comparecimento vem sempre do banco.
func NewLedger(votos domain.VoteRepository, contador domain.Contador, clock domain.Clock, idsGen *ids.Generator) *Ledger {
	if idsGen == nil {
		idsGen = ids.DefaultGenerator()
	}
	return &Ledger{
		votos:    votos,
		contador: contador,
		clock:    clock,
		ids:      idsGen,
		log:      logger.With("voting"),
	}
}

func (l *Ledger) CastVote(ctx context.Context, voter domain.VoterID, election domain.ElectionID, candidate domain.CandidateID) (domain.Vote, error) {
	if err := validarVoto(voter, election, candidate); err != nil {
		return domain.Vote{}, err
	}

	agora := l.clock.Agora()
	v := domain.Vote{
		ID:          domain.VoteID(l.ids.NewAt(agora)),
		ElectionID:  election,
		VoterID:     voter,
		CandidateID: candidate,
		CreatedAt:   agora,
	}

	if err := l.votos.Insert(ctx, v); err != nil {
		return domain.Vote{}, err
	}

	if l.contador != nil {
		// Contador é cache: falha aqui não desfaz um voto já gravado.
		if _, _, err := l.contador.IncrementarSeExiste(ctx, CounterKeyTurnout(election), 1); err != nil {
			l.log.Warn("falha ao incrementar comparecimento", "eleicao", election, "err", err)
		}
	}
	return v, nil
}

func (l *Ledger) GetVotesByVoter(ctx context.Context, voter domain.VoterID) ([]domain.Vote, error) {
	if voter <= 0 {
		return nil, fmt.Errorf("%w: eleitor invalido %d", domain.ErrValidation, voter)
	}
	return l.votos.ListByVoter(ctx, voter)
}

// Tally lê as contagens agregadas; candidatos sem voto ficam fora do mapa.
func (l *Ledger) Tally(ctx context.Context, election domain.ElectionID) (domain.Tally, error) {
	if election == "" {
		return nil, fmt.Errorf("%w: id da eleicao obrigatorio", domain.ErrValidation)
	}
	return l.votos.CountByCandidate(ctx, election)
}

// Turnout usa o contador Redis quando semeado; senão conta no banco e semeia com TTL,
// o que limita qualquer divergência do cache ao tempo de vida da chave.
func (l *Ledger) Turnout(ctx context.Context, election domain.ElectionID) (int64, error) {
	if election == "" {
		return 0, fmt.Errorf("%w: id da eleicao obrigatorio", domain.ErrValidation)
	}

	chave := CounterKeyTurnout(election)
	if l.contador != nil {
		total, ok, err := l.contador.Obter(ctx, chave)
		if err == nil && ok {
			return total, nil
		}
		if err != nil {
			l.log.Warn("contador indisponivel, usando banco", "eleicao", election, "err", err)
		}
	}

	total, err := l.votos.CountByElection(ctx, election)
	if err != nil {
		return 0, err
	}

	if l.contador != nil {
		if _, err := l.contador.Semear(ctx, chave, total, turnoutTTL); err != nil {
			l.log.Warn("falha ao semear comparecimento", "eleicao", election, "err", err)
		}
	}
	return total, nil
}

func validarVoto(voter domain.VoterID, election domain.ElectionID, candidate domain.CandidateID) error {
	if voter <= 0 {
		return fmt.Errorf("%w: eleitor invalido %d", domain.ErrValidation, voter)
	}
	if election == "" {
		return fmt.Errorf("%w: id da eleicao obrigatorio", domain.ErrValidation)
	}
	if candidate <= 0 {
		return fmt.Errorf("%w: candidato invalido %d", domain.ErrValidation, candidate)
	}
	return nil
}
