package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/marcelojr/e-voting/internal/app/elections"
	"github.com/marcelojr/e-voting/internal/app/publish"
	"github.com/marcelojr/e-voting/internal/domain"
	"github.com/marcelojr/e-voting/internal/platform/antifraude"
	"github.com/marcelojr/e-voting/internal/platform/metrics"
)

func (a *API) criarEleicao(w http.ResponseWriter, r *http.Request) {
	var req elections.NewElection
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.responderErro(w, r, fmt.Errorf("%w: payload invalido", domain.ErrValidation))
		return
	}

	e, err := a.svc.Elections.CreateElection(r.Context(), req)
	if err != nil {
		a.responderErro(w, r, err)
		return
	}
	a.log(r).Info("eleicao criada", "eleicao", e.ID, "candidatos", len(e.CandidateIDs))
	responderJSON(w, http.StatusCreated, e)
}

func (a *API) listarEleicoes(w http.ResponseWriter, r *http.Request) {
	lista, err := a.svc.Elections.ListElections(r.Context())
	if err != nil {
		a.responderErro(w, r, err)
		return
	}
	responderJSON(w, http.StatusOK, lista)
}

func (a *API) listarPublicas(w http.ResponseWriter, r *http.Request) {
	lista, err := a.svc.Elections.GetPublicElections(r.Context())
	if err != nil {
		a.responderErro(w, r, err)
		return
	}
	responderJSON(w, http.StatusOK, lista)
}

func (a *API) obterEleicao(w http.ResponseWriter, r *http.Request) {
	e, err := a.svc.Elections.GetElection(r.Context(), electionParam(r))
	if err != nil {
		a.responderErro(w, r, err)
		return
	}
	responderJSON(w, http.StatusOK, e)
}

func (a *API) removerEleicao(w http.ResponseWriter, r *http.Request) {
	if err := a.svc.Elections.DeleteElection(r.Context(), electionParam(r)); err != nil {
		a.responderErro(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) adicionarCandidato(w http.ResponseWriter, r *http.Request) {
	candidato, err := strconv.ParseInt(chi.URLParam(r, "candidateId"), 10, 64)
	if err != nil {
		a.responderErro(w, r, fmt.Errorf("%w: candidato invalido", domain.ErrValidation))
		return
	}

	e, err := a.svc.Elections.AddCandidate(r.Context(), electionParam(r), domain.CandidateID(candidato))
	if err != nil {
		a.responderErro(w, r, err)
		return
	}
	responderJSON(w, http.StatusOK, e)
}

func (a *API) atualizarStatus(w http.ResponseWriter, r *http.Request) {
	status, err := domain.ParseElectionStatus(r.URL.Query().Get("status"))
	if err != nil {
		a.responderErro(w, r, err)
		return
	}
	a.mudarStatus(w, r, status)
}

func (a *API) atalhoStatus(status domain.ElectionStatus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a.mudarStatus(w, r, status)
	}
}

func (a *API) mudarStatus(w http.ResponseWriter, r *http.Request, status domain.ElectionStatus) {
	e, err := a.svc.Elections.UpdateStatus(r.Context(), electionParam(r), status)
	if err != nil {
		a.responderErro(w, r, err)
		return
	}
	a.log(r).Info("status alterado", "eleicao", e.ID, "status", e.Status)
	responderJSON(w, http.StatusOK, e)
}

type votoRequest struct {
	ElectionID  domain.ElectionID  `json:"electionId"`
	CandidateID domain.CandidateID `json:"candidateId"`
}

func (a *API) registrarVoto(w http.ResponseWriter, r *http.Request) {
	eleitor, err := a.eleitor(r)
	if err != nil {
		a.responderErro(w, r, err)
		return
	}

	var req votoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		metrics.ObserveVoteRequest("payload_invalido")
		a.responderErro(w, r, fmt.Errorf("%w: payload invalido", domain.ErrValidation))
		return
	}

	voto, err := a.svc.Votes.Cast(r.Context(), eleitor, req.ElectionID, req.CandidateID)
	if err != nil {
		a.log(r).Warn("voto recusado", "eleicao", req.ElectionID, "candidato", req.CandidateID, "err", err)
		a.responderErro(w, r, err)
		return
	}

	a.log(r).Info("voto registrado", "eleicao", voto.ElectionID, "voto", voto.ID)
	responderJSON(w, http.StatusCreated, voto)
}

func (a *API) meusVotos(w http.ResponseWriter, r *http.Request) {
	eleitor, err := a.eleitor(r)
	if err != nil {
		a.responderErro(w, r, err)
		return
	}

	votos, err := a.svc.Ledger.GetVotesByVoter(r.Context(), eleitor)
	if err != nil {
		a.responderErro(w, r, err)
		return
	}
	responderJSON(w, http.StatusOK, votos)
}

func (a *API) apuracao(w http.ResponseWriter, r *http.Request) {
	tally, err := a.svc.Ledger.Tally(r.Context(), electionParam(r))
	if err != nil {
		a.responderErro(w, r, err)
		return
	}
	responderJSON(w, http.StatusOK, tally)
}

type comparecimentoResponse struct {
	ElectionID domain.ElectionID `json:"electionId"`
	Turnout    int64             `json:"turnout"`
}

func (a *API) comparecimento(w http.ResponseWriter, r *http.Request) {
	id := electionParam(r)
	total, err := a.svc.Ledger.Turnout(r.Context(), id)
	if err != nil {
		a.responderErro(w, r, err)
		return
	}
	responderJSON(w, http.StatusOK, comparecimentoResponse{ElectionID: id, Turnout: total})
}

func (a *API) publicarResultados(w http.ResponseWriter, r *http.Request) {
	var counts domain.Tally
	if err := json.NewDecoder(r.Body).Decode(&counts); err != nil {
		a.responderErro(w, r, fmt.Errorf("%w: contagem invalida", domain.ErrValidation))
		return
	}

	if err := a.svc.Results.PublishResults(r.Context(), electionParam(r), counts); err != nil {
		a.responderErro(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) obterResultados(w http.ResponseWriter, r *http.Request) {
	rows, err := a.svc.Results.GetResults(r.Context(), electionParam(r))
	if err != nil {
		a.responderErro(w, r, err)
		return
	}
	responderJSON(w, http.StatusOK, rows)
}

type enfileiradoResponse struct {
	Status     string            `json:"status"`
	ElectionID domain.ElectionID `json:"eleicao"`
	RequestID  string            `json:"request_id"`
}

func (a *API) publicar(w http.ResponseWriter, r *http.Request) {
	id := electionParam(r)

	if r.URL.Query().Get("async") == "true" {
		a.enfileirar(w, r, id)
		return
	}

	report, err := a.svc.Publish.Run(r.Context(), id)
	if err != nil {
		a.responderErro(w, r, err)
		return
	}
	a.log(r).Info("publicacao concluida", "eleicao", id, "run_id", report.RunID, "ja_arquivada", report.AlreadyArchived)
	responderJSON(w, http.StatusOK, report)
}

func (a *API) enfileirar(w http.ResponseWriter, r *http.Request, id domain.ElectionID) {
	if a.svc.Queue == nil {
		a.responderErro(w, r, fmt.Errorf("%w: publicacao assincrona indisponivel", domain.ErrValidation))
		return
	}
	// Falha cedo para eleição inexistente em vez de deixar o worker descobrir.
	if _, err := a.svc.Elections.GetElection(r.Context(), id); err != nil {
		a.responderErro(w, r, err)
		return
	}

	job := domain.PublishJob{ElectionID: id, RequestedAt: a.now().UTC(), RequestID: requestIDFrom(r.Context())}
	if err := a.svc.Queue.PublicarJob(r.Context(), job); err != nil {
		a.responderErro(w, r, err)
		return
	}
	a.log(r).Info("publicacao enfileirada", "eleicao", id)
	responderJSON(w, http.StatusAccepted, enfileiradoResponse{Status: "enfileirado", ElectionID: id, RequestID: job.RequestID})
}

func (a *API) retomar(w http.ResponseWriter, r *http.Request) {
	from, err := publish.ParseStep(r.URL.Query().Get("from"))
	if err != nil {
		a.responderErro(w, r, err)
		return
	}

	report, err := a.svc.Publish.Resume(r.Context(), electionParam(r), from)
	if err != nil {
		a.responderErro(w, r, err)
		return
	}
	responderJSON(w, http.StatusOK, report)
}

func electionParam(r *http.Request) domain.ElectionID {
	return domain.ElectionID(chi.URLParam(r, "id"))
}

const (
	codigoNaoEncontrado  = "not_found"
	codigoStatusInvalido = "invalid_state"
	codigoValidacao      = "validation"
	codigoJaVotou        = "already_voted"
	codigoLimitado       = "rate_limited"
	codigoTravado        = "locked"
	codigoEtapa          = "step_failed"
	codigoNaoAutenticado = "unauthorized"
	codigoInterno        = "internal"
)

type erroResposta struct {
	Erro   string                `json:"erro"`
	Codigo string                `json:"codigo"`
	Etapa  string                `json:"etapa,omitempty"`
	Status domain.ElectionStatus `json:"status,omitempty"`
}

func responderJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (a *API) responderErro(w http.ResponseWriter, r *http.Request, err error) {
	status, body := traduzirErro(err)
	var limitErr *antifraude.LimitError
	if errors.As(err, &limitErr) {
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(limitErr.RetryAfter.Seconds()))))
	}
	if status >= http.StatusInternalServerError {
		a.log(r).Error("falha na requisicao", "rota", r.URL.Path, "codigo", body.Codigo, "err", err)
	}
	responderJSON(w, status, body)
}

// traduzirErro converte erros de domínio no envelope HTTP. StepError vem primeiro porque
// embrulha a causa original, que não deve decidir o status.
func traduzirErro(err error) (int, erroResposta) {
	var stepErr *publish.StepError
	switch {
	case errors.As(err, &stepErr):
		return http.StatusBadGateway, erroResposta{Erro: err.Error(), Codigo: codigoEtapa, Etapa: stepErr.Step.String(), Status: stepErr.Status}
	case errors.Is(err, errNaoAutenticado):
		return http.StatusUnauthorized, erroResposta{Erro: err.Error(), Codigo: codigoNaoAutenticado}
	case errors.Is(err, domain.ErrDuplicateVote):
		return http.StatusConflict, erroResposta{Erro: err.Error(), Codigo: codigoJaVotou}
	case errors.Is(err, antifraude.ErrRateLimitExceeded):
		return http.StatusTooManyRequests, erroResposta{Erro: err.Error(), Codigo: codigoLimitado}
	case errors.Is(err, domain.ErrLocked):
		return http.StatusConflict, erroResposta{Erro: err.Error(), Codigo: codigoTravado}
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, erroResposta{Erro: err.Error(), Codigo: codigoNaoEncontrado}
	case errors.Is(err, domain.ErrInvalidState):
		return http.StatusConflict, erroResposta{Erro: err.Error(), Codigo: codigoStatusInvalido}
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, erroResposta{Erro: err.Error(), Codigo: codigoValidacao}
	default:
		return http.StatusInternalServerError, erroResposta{Erro: "erro interno", Codigo: codigoInterno}
	}
}
