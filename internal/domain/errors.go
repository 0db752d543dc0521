package domain

import "errors"

// Erros sentinela compartilhados pelas camadas. Repositórios e serviços devolvem
// estes valores (opcionalmente embrulhados) e a borda HTTP traduz via errors.Is.
var (
	ErrNotFound      = errors.New("registro nao encontrado")
	ErrInvalidState  = errors.New("operacao invalida no status atual")
	ErrValidation    = errors.New("dados invalidos")
	ErrDuplicateVote = errors.New("eleitor ja votou nesta eleicao")
	ErrLocked        = errors.New("publicacao em andamento para a eleicao")
)
