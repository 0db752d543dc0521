package publish

import (
	"fmt"
	"strings"
	"time"

	"github.com/marcelojr/e-voting/internal/domain"
)

// Step é uma etapa da publicação, em ordem de execução.
type Step int

const (
	StepClose Step = iota + 1
	StepTally
	StepPublish
	StepArchive
)

var stepNames = map[Step]string{
	StepClose:   "close",
	StepTally:   "tally",
	StepPublish: "publish",
	StepArchive: "archive",
}

func (s Step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return fmt.Sprintf("step(%d)", int(s))
}

func (s Step) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ParseStep aceita o nome ("tally") ou o número da etapa ("2").
func ParseStep(raw string) (Step, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	for step, name := range stepNames {
		if raw == name || raw == fmt.Sprint(int(step)) {
			return step, nil
		}
	}
	return 0, fmt.Errorf("%w: etapa desconhecida %q", domain.ErrValidation, raw)
}

// StepOutcome registra uma etapa concluída.
type StepOutcome struct {
	Step     Step          `json:"etapa"`
	Duration time.Duration `json:"duracao_ns"`
}

// Report descreve uma execução da orquestração.
type Report struct {
	RunID           string                `json:"run_id"`
	ElectionID      domain.ElectionID     `json:"eleicao"`
	Steps           []StepOutcome         `json:"etapas"`
	Tally           domain.Tally          `json:"apuracao,omitempty"`
	FinalStatus     domain.ElectionStatus `json:"status_final"`
	AlreadyArchived bool                  `json:"ja_arquivada"`
}

// StepError indica a etapa que falhou e o status em que a eleição ficou,
// para que o operador saiba de onde retomar.
type StepError struct {
	Step       Step
	ElectionID domain.ElectionID
	Status     domain.ElectionStatus
	Err        error
}

func (e *StepError) Error() string {
	status := string(e.Status)
	if status == "" {
		status = "desconhecido"
	}
	return fmt.Sprintf("publicacao %s: etapa %s falhou (status %s): %v", e.ElectionID, e.Step, status, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
