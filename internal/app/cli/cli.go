// Pacote cli implementa o electionctl, usado pelo operador para inspecionar eleições e
// conduzir ou retomar a publicação de resultados direto nos stores.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/marcelojr/e-voting/internal/app/publish"
	"github.com/marcelojr/e-voting/internal/app/wire"
	"github.com/marcelojr/e-voting/internal/domain"
)

// Backend é o que os comandos precisam dos serviços.
type Backend interface {
	GetElection(ctx context.Context, id domain.ElectionID) (domain.Election, error)
	Tally(ctx context.Context, id domain.ElectionID) (domain.Tally, error)
	Turnout(ctx context.Context, id domain.ElectionID) (int64, error)
	GetResults(ctx context.Context, id domain.ElectionID) ([]domain.Result, error)
	Run(ctx context.Context, id domain.ElectionID) (publish.Report, error)
	Resume(ctx context.Context, id domain.ElectionID, from publish.Step) (publish.Report, error)
}

// Loader abre o backend sob demanda; o close devolvido é chamado ao fim do comando.
type Loader func(ctx context.Context) (Backend, func() error, error)

type containerBackend struct {
	c *wire.Container
}

// FromContainer adapta o container montado pelo wire.
func FromContainer(c *wire.Container) Backend {
	return containerBackend{c: c}
}

func (b containerBackend) GetElection(ctx context.Context, id domain.ElectionID) (domain.Election, error) {
	return b.c.Elections.GetElection(ctx, id)
}

func (b containerBackend) Tally(ctx context.Context, id domain.ElectionID) (domain.Tally, error) {
	return b.c.Ledger.Tally(ctx, id)
}

func (b containerBackend) Turnout(ctx context.Context, id domain.ElectionID) (int64, error) {
	return b.c.Ledger.Turnout(ctx, id)
}

func (b containerBackend) GetResults(ctx context.Context, id domain.ElectionID) ([]domain.Result, error) {
	return b.c.Results.GetResults(ctx, id)
}

func (b containerBackend) Run(ctx context.Context, id domain.ElectionID) (publish.Report, error) {
	return b.c.Orchestrator.Run(ctx, id)
}

func (b containerBackend) Resume(ctx context.Context, id domain.ElectionID, from publish.Step) (publish.Report, error) {
	return b.c.Orchestrator.Resume(ctx, id, from)
}

var (
	verde    = color.New(color.FgGreen)
	vermelho = color.New(color.FgRed)
	amarelo  = color.New(color.FgYellow)
	negrito  = color.New(color.Bold)
)

// NewRootCmd monta o electionctl com todos os subcomandos.
func NewRootCmd(load Loader) *cobra.Command {
	root := &cobra.Command{
		Use:           "electionctl",
		Short:         "Operacao de eleicoes: status, apuracao e publicacao de resultados",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(statusCmd(load))
	root.AddCommand(tallyCmd(load))
	root.AddCommand(resultsCmd(load))
	root.AddCommand(publishCmd(load))
	root.AddCommand(resumeCmd(load))
	return root
}

// withBackend abre o backend, executa fn e fecha, preservando o erro de fn.
func withBackend(cmd *cobra.Command, load Loader, fn func(ctx context.Context, b Backend) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	b, closeFn, err := load(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if closeFn != nil {
			_ = closeFn()
		}
	}()
	return fn(ctx, b)
}

func statusCmd(load Loader) *cobra.Command {
	return &cobra.Command{
		Use:   "status <election-id>",
		Short: "Mostra status, candidatos e comparecimento de uma eleicao",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := domain.ElectionID(args[0])
			return withBackend(cmd, load, func(ctx context.Context, b Backend) error {
				e, err := b.GetElection(ctx, id)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s - %s [%s]\n", e.ID, e.Title, statusColorido(e.Status))
				if e.Description != "" {
					fmt.Fprintf(out, "   %s\n", e.Description)
				}
				fmt.Fprintf(out, "Candidatos: %v\n", e.CandidateIDs)

				total, err := b.Turnout(ctx, id)
				if err != nil {
					fmt.Fprintf(out, "Comparecimento: %s\n", amarelo.Sprintf("indisponivel (%v)", err))
					return nil
				}
				fmt.Fprintf(out, "Comparecimento: %d\n", total)
				return nil
			})
		},
	}
}

func tallyCmd(load Loader) *cobra.Command {
	return &cobra.Command{
		Use:   "tally <election-id>",
		Short: "Conta os votos registrados por candidato",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd, load, func(ctx context.Context, b Backend) error {
				tally, err := b.Tally(ctx, domain.ElectionID(args[0]))
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "CANDIDATO\tVOTOS")
				for _, c := range tally.Candidates() {
					fmt.Fprintf(w, "%d\t%d\n", c, tally[c])
				}
				fmt.Fprintf(w, "TOTAL\t%d\n", tally.Total())
				return w.Flush()
			})
		},
	}
}

func resultsCmd(load Loader) *cobra.Command {
	return &cobra.Command{
		Use:   "results <election-id>",
		Short: "Lista os resultados publicados",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd, load, func(ctx context.Context, b Backend) error {
				rows, err := b.GetResults(ctx, domain.ElectionID(args[0]))
				if err != nil {
					return err
				}
				if len(rows) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), amarelo.Sprint("nenhum resultado publicado"))
					return nil
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "CANDIDATO\tVOTOS\tAPURADO EM")
				for _, r := range rows {
					fmt.Fprintf(w, "%d\t%d\t%s\n", r.CandidateID, r.VoteCount, r.ComputedAt.Format(time.RFC3339))
				}
				return w.Flush()
			})
		},
	}
}

func publishCmd(load Loader) *cobra.Command {
	return &cobra.Command{
		Use:   "publish <election-id>",
		Short: "Fecha, apura, publica e arquiva a eleicao",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := domain.ElectionID(args[0])
			return withBackend(cmd, load, func(ctx context.Context, b Backend) error {
				report, err := b.Run(ctx, id)
				return imprimirExecucao(cmd.OutOrStdout(), id, report, err)
			})
		},
	}
}

func resumeCmd(load Loader) *cobra.Command {
	var from string

	cmd := &cobra.Command{
		Use:   "resume <election-id>",
		Short: "Retoma a publicacao de uma eleicao CLOSED a partir de uma etapa",
		Long: `Retoma uma publicacao interrompida. A eleicao precisa estar CLOSED.
Etapas aceitas em --from: tally, publish, archive.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			step, err := publish.ParseStep(from)
			if err != nil {
				return err
			}
			id := domain.ElectionID(args[0])
			return withBackend(cmd, load, func(ctx context.Context, b Backend) error {
				report, err := b.Resume(ctx, id, step)
				return imprimirExecucao(cmd.OutOrStdout(), id, report, err)
			})
		},
	}

	cmd.Flags().StringVar(&from, "from", "tally", "Etapa inicial (tally|publish|archive)")
	return cmd
}

func imprimirExecucao(out io.Writer, id domain.ElectionID, report publish.Report, err error) error {
	if err != nil {
		var stepErr *publish.StepError
		if errors.As(err, &stepErr) {
			fmt.Fprintf(out, "%s etapa %s falhou: %v\n", vermelho.Sprint("✗"), stepErr.Step, stepErr.Err)
			fmt.Fprintf(out, "  status atual: %s\n", statusColorido(stepErr.Status))
			if stepErr.Status == domain.StatusClosed {
				from := stepErr.Step
				if from == publish.StepClose {
					// O fechamento gravou mesmo com erro; a retomada começa pela apuração.
					from = publish.StepTally
				}
				fmt.Fprintf(out, "  retome com: electionctl resume %s --from %s\n", id, from)
			}
		}
		return err
	}

	if report.AlreadyArchived {
		fmt.Fprintf(out, "%s eleicao %s ja estava arquivada\n", amarelo.Sprint("!"), id)
		return nil
	}
	for _, s := range report.Steps {
		fmt.Fprintf(out, "%s %-8s %s\n", verde.Sprint("✓"), s.Step, s.Duration.Round(time.Millisecond))
	}
	fmt.Fprintf(out, "status final: %s\n", statusColorido(report.FinalStatus))
	return nil
}

func statusColorido(s domain.ElectionStatus) string {
	switch s {
	case domain.StatusArchived:
		return verde.Sprint(s)
	case domain.StatusClosed:
		return amarelo.Sprint(s)
	case domain.StatusOpen:
		return negrito.Sprint(s)
	case "":
		return vermelho.Sprint("desconhecido")
	default:
		return string(s)
	}
}
