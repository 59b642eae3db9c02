package models

// Needs is the structured customer requirement mapping merged from the
// recommendation request and a prior voice session.
type Needs map[string]Value

// Well-known needs keys consumed by the retriever and ranker.
const (
	NeedInsuranceTypes  = "insuranceTypes"
	NeedCoverageAmount  = "coverageAmount"
	NeedFamilySituation = "familySituation"
	NeedConcerns        = "concerns"
	NeedBudget          = "budget"
)

// MergeNeeds combines request and session needs. Request values always win;
// session values only fill keys absent from the request.
func MergeNeeds(request, session Needs) Needs {
	merged := make(Needs, len(request)+len(session))
	for k, v := range request {
		merged[k] = v
	}
	for k, v := range session {
		if _, ok := merged[k]; !ok {
			merged[k] = v
		}
	}
	return merged
}

// NeedsFromAny converts a decoded map payload into Needs.
func NeedsFromAny(raw map[string]any) Needs {
	if raw == nil {
		return nil
	}
	needs := make(Needs, len(raw))
	for k, v := range raw {
		needs[k] = FromAny(v)
	}
	return needs
}

// StringList returns the key's value as a list of strings. A scalar string
// value is treated as a single-element list.
func (n Needs) StringList(key string) []string {
	v, ok := n[key]
	if !ok {
		return nil
	}
	if list, ok := v.AsList(); ok {
		return list
	}
	if s, ok := v.AsString(); ok && s != "" {
		return []string{s}
	}
	return nil
}
