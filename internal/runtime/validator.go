package runtime

import (
	"fmt"

	"github.com/Dev-Ruco/pressflow/pkg/domain"
)

// Result is the validator's verdict on a requested transition.
// Message is only set on rejection and is meant for the editor.
type Result struct {
	Valid   bool
	Message string
}

func accept() Result { return Result{Valid: true} }

func reject(msg string) Result { return Result{Valid: false, Message: msg} }

// guard decides whether a specific forward transition is allowed given
// the current state projection.
type guard func(p domain.Projection) Result

// transitionKey identifies one (from, to) pair in the table.
type transitionKey struct {
	From domain.Step
	To   domain.Step
}

// transitionTable is the single canonical rule set for the workflow.
// Only adjacent forward pairs appear here; anything absent is rejected.
var transitionTable = map[transitionKey]guard{
	{domain.StepUpload, domain.StepTypeSelection}: func(p domain.Projection) Result {
		if p.IsProcessing {
			return reject("Aguarde o fim do processamento do material enviado.")
		}
		if !p.AgentConfirmed {
			return reject("O agente ainda não confirmou o processamento do material.")
		}
		return accept()
	},
	{domain.StepTypeSelection, domain.StepTitleSelection}: func(p domain.Projection) Result {
		if p.ArticleType == nil {
			return reject("Escolha o tipo de artigo antes de continuar.")
		}
		return accept()
	},
	{domain.StepTitleSelection, domain.StepContentEditing}: func(p domain.Projection) Result {
		if p.Title == "" {
			return reject("Escolha um título para o artigo antes de continuar.")
		}
		return accept()
	},
	{domain.StepContentEditing, domain.StepImageSelection}: func(p domain.Projection) Result {
		if p.Content == "" {
			return reject("O artigo ainda não tem conteúdo.")
		}
		return accept()
	},
	{domain.StepImageSelection, domain.StepFinalization}: func(p domain.Projection) Result {
		if p.Title == "" || p.Content == "" {
			return reject("Título e conteúdo são obrigatórios para finalizar.")
		}
		return accept()
	},
}

// CanTransition decides whether moving from one step to another is
// allowed given the state projection. Pure and deterministic; callers
// surface the message on rejection.
func CanTransition(from, to domain.Step, p domain.Projection) Result {
	if !from.Valid() || !to.Valid() {
		return reject("Passo de fluxo desconhecido.")
	}
	if from == to {
		// Terminal no-op or a patch restating the current step.
		return accept()
	}
	if to.Before(from) {
		return reject("Não é possível voltar a um passo anterior.")
	}
	g, ok := transitionTable[transitionKey{From: from, To: to}]
	if !ok {
		return reject(fmt.Sprintf("Não é possível saltar de %s para %s.", from, to))
	}
	return g(p)
}
