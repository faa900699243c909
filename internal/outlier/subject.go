// Package outlier detects provider-level fraud, waste and abuse patterns by
// comparing one provider's claims against the full claim population.
package outlier

import (
	"sort"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// Subject is one provider together with the population it is compared to.
type Subject struct {
	ProviderID string         `json:"providerId"`
	Population []domain.Claim `json:"population"`
}

// Own returns the provider's claims in population order.
func (s Subject) Own() []domain.Claim {
	var out []domain.Claim
	for _, c := range s.Population {
		if c.ProviderID == s.ProviderID {
			out = append(out, c)
		}
	}
	return out
}

// ProviderName returns the name on the provider's first claim.
func (s Subject) ProviderName() string {
	for _, c := range s.Population {
		if c.ProviderID == s.ProviderID {
			return c.ProviderName
		}
	}
	return ""
}

// Facts flattens the subject for custom rule expressions.
func (s Subject) Facts() map[string]any {
	own := s.Own()
	claims := make([]any, len(own))
	total := 0.0
	bens := make(map[string]struct{})
	for i, c := range own {
		total += c.BilledAmount
		bens[c.BeneficiaryID] = struct{}{}
		claims[i] = map[string]any{
			"id":            c.ID,
			"beneficiaryId": c.BeneficiaryID,
			"serviceDate":   c.ServiceDate,
			"procedureCode": c.ProcedureCode,
			"billedAmount":  c.BilledAmount,
			"status":        string(c.Status),
			"riskScore":     c.RiskScore,
		}
	}
	mean := 0.0
	if len(own) > 0 {
		mean = total / float64(len(own))
	}
	return map[string]any{
		"providerId":       s.ProviderID,
		"providerName":     s.ProviderName(),
		"claimCount":       len(own),
		"beneficiaryCount": len(bens),
		"totalBilled":      total,
		"meanBilled":       mean,
		"claims":           claims,
	}
}

// Target is the unit the outlier agent reviews: a subject plus the subset
// of the provider's claims whose status should be decided.
type Target struct {
	Subject
	Claims []domain.Claim `json:"claims"`
}

// Targets groups selected claims by provider, in order of first appearance.
func Targets(population, selected []domain.Claim) []Target {
	var order []string
	byProvider := make(map[string][]domain.Claim)
	for _, c := range selected {
		if _, ok := byProvider[c.ProviderID]; !ok {
			order = append(order, c.ProviderID)
		}
		byProvider[c.ProviderID] = append(byProvider[c.ProviderID], c)
	}
	out := make([]Target, len(order))
	for i, id := range order {
		out[i] = Target{
			Subject: Subject{ProviderID: id, Population: population},
			Claims:  byProvider[id],
		}
	}
	return out
}

// providerStats aggregates one provider's claims.
type providerStats struct {
	id            string
	count         int
	total         float64
	beneficiaries map[string]struct{}
}

func (p *providerStats) mean() float64 {
	if p.count == 0 {
		return 0
	}
	return p.total / float64(p.count)
}

func (p *providerStats) perBeneficiary() float64 {
	if len(p.beneficiaries) == 0 {
		return 0
	}
	return float64(p.count) / float64(len(p.beneficiaries))
}

// providers aggregates the population by provider, sorted by id.
func providers(pop []domain.Claim) []*providerStats {
	idx := make(map[string]*providerStats)
	for _, c := range pop {
		p, ok := idx[c.ProviderID]
		if !ok {
			p = &providerStats{id: c.ProviderID, beneficiaries: make(map[string]struct{})}
			idx[c.ProviderID] = p
		}
		p.count++
		p.total += c.BilledAmount
		p.beneficiaries[c.BeneficiaryID] = struct{}{}
	}
	out := make([]*providerStats, 0, len(idx))
	for _, p := range idx {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}
