package serviceorder

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Status is the lifecycle state of a service order. Values are the Portuguese
// labels shown on the shop floor and persisted verbatim.
type Status string

const (
	StatusAwaitingEvaluation Status = "Aguardando Avaliação"
	StatusQuotePending       Status = "Orçamento Pendente"
	StatusInRepair           Status = "Em Reparo"
	StatusAwaitingPart       Status = "Aguardando Peça"
	StatusAwaitingQA         Status = "Aguardando QA"
	StatusFinished           Status = "Finalizado"
	StatusNotApproved        Status = "Não Aprovado"
	StatusCancelled          Status = "Cancelado"
)

// CapabilityPerformQA is required to leave Aguardando QA towards a verdict
const CapabilityPerformQA = "perform_qa"

// AllStatuses lists every status in lifecycle order
var AllStatuses = []Status{
	StatusAwaitingEvaluation,
	StatusQuotePending,
	StatusInRepair,
	StatusAwaitingPart,
	StatusAwaitingQA,
	StatusFinished,
	StatusNotApproved,
	StatusCancelled,
}

// ParseStatus resolves a label to a Status. Matching is case-insensitive and
// NFC-normalised, so decomposed accents sent by some clients still match.
func ParseStatus(s string) (Status, bool) {
	needle := strings.ToLower(strings.TrimSpace(norm.NFC.String(s)))
	for _, st := range AllStatuses {
		if strings.ToLower(string(st)) == needle {
			return st, true
		}
	}
	return "", false
}

// IsValid checks if the status is a known value
func (s Status) IsValid() bool {
	_, ok := transitions[s]
	return ok
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// IsTerminal reports whether the status ends the lifecycle
func (s Status) IsTerminal() bool {
	return s == StatusFinished || s == StatusNotApproved || s == StatusCancelled
}

// Edge is one allowed transition. RequiredCapability is empty for ungated edges.
type Edge struct {
	From               Status
	To                 Status
	RequiredCapability string
}

// transitions is the single source of truth for both the direct status change
// and the board-driven one. Terminal states have no outgoing edges.
var transitions = map[Status]map[Status]string{
	StatusAwaitingEvaluation: {
		StatusQuotePending: "",
		StatusInRepair:     "",
		StatusAwaitingPart: "",
		StatusCancelled:    "",
	},
	StatusQuotePending: {
		StatusAwaitingEvaluation: "",
		StatusInRepair:           "",
		StatusAwaitingPart:       "",
		StatusCancelled:          "",
	},
	StatusInRepair: {
		StatusAwaitingEvaluation: "",
		StatusQuotePending:       "",
		StatusAwaitingPart:       "",
		StatusAwaitingQA:         "",
		StatusCancelled:          "",
	},
	StatusAwaitingPart: {
		StatusAwaitingEvaluation: "",
		StatusQuotePending:       "",
		StatusInRepair:           "",
		StatusAwaitingQA:         "",
		StatusCancelled:          "",
	},
	StatusAwaitingQA: {
		StatusAwaitingEvaluation: "",
		StatusQuotePending:       "",
		StatusInRepair:           "",
		StatusAwaitingPart:       "",
		StatusFinished:           CapabilityPerformQA,
		StatusNotApproved:        CapabilityPerformQA,
		StatusCancelled:          "",
	},
	StatusFinished:    {},
	StatusNotApproved: {},
	StatusCancelled:   {},
}

// EdgeTo looks up the edge from s to target
func (s Status) EdgeTo(target Status) (Edge, bool) {
	targets, ok := transitions[s]
	if !ok {
		return Edge{}, false
	}
	capability, ok := targets[target]
	if !ok {
		return Edge{}, false
	}
	return Edge{From: s, To: target, RequiredCapability: capability}, true
}

// CanTransitionTo checks if the status can transition to the target status
func (s Status) CanTransitionTo(target Status) bool {
	_, ok := s.EdgeTo(target)
	return ok
}

// AllowedTargets returns the statuses reachable in one step, in lifecycle order
func (s Status) AllowedTargets() []Status {
	out := make([]Status, 0, len(transitions[s]))
	for _, st := range AllStatuses {
		if _, ok := transitions[s][st]; ok {
			out = append(out, st)
		}
	}
	return out
}

// CapabilityRequiredFor returns the capability gating any edge into target, or
// "" when every edge into target is open.
func CapabilityRequiredFor(target Status) string {
	for _, targets := range transitions {
		if capability := targets[target]; capability != "" {
			return capability
		}
	}
	return ""
}
