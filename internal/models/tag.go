package models

import "encoding/json"

// TagAllClasses is the wildcard audience label matching any room.
const TagAllClasses = "all-classes"

// TagMatchMode selects how an audience tag set is compared against a room's tags.
type TagMatchMode int

const (
	// TagMatchStrict requires the audience to be a proper superset of the
	// target: an audience naming exactly the room's own tags does not match
	// unless it carries the all-classes wildcard. This is the legacy
	// behaviour and the default.
	TagMatchStrict TagMatchMode = iota
	// TagMatchInclusive accepts superset-or-equal audiences.
	TagMatchInclusive
)

// TagSet is an unordered collection of facet labels identifying a room or an
// override action's audience.
type TagSet []string

func (t TagSet) toSet() map[string]struct{} {
	set := make(map[string]struct{}, len(t))
	for _, tag := range t {
		set[tag] = struct{}{}
	}
	return set
}

// Contains reports whether the tag set carries the given label.
func (t TagSet) Contains(tag string) bool {
	for _, candidate := range t {
		if candidate == tag {
			return true
		}
	}
	return false
}

// Matches reports whether this audience tag set targets the given room tags
// (the "weak" single-source match). The all-classes wildcard matches anything.
func (t TagSet) Matches(target TagSet, mode TagMatchMode) bool {
	source := t.toSet()
	if _, ok := source[TagAllClasses]; ok {
		return true
	}

	targetSet := target.toSet()
	if len(source) < len(targetSet) {
		return false
	}
	if mode == TagMatchStrict && len(source) == len(targetSet) {
		return false
	}
	for tag := range targetSet {
		if _, ok := source[tag]; !ok {
			return false
		}
	}
	return true
}

// MatchesAny reports whether any of the candidate audience tag sets targets
// the given room tags (the "strong" match used by override actions).
func MatchesAny(sources []TagSet, target TagSet, mode TagMatchMode) bool {
	for _, source := range sources {
		if source.Matches(target, mode) {
			return true
		}
	}
	return false
}

// TagSetList accepts either a single tag set or a list of tag sets in JSON,
// normalising to the list form.
type TagSetList []TagSet

// UnmarshalJSON implements json.Unmarshaler.
func (l *TagSetList) UnmarshalJSON(data []byte) error {
	var many [][]string
	if err := json.Unmarshal(data, &many); err == nil {
		out := make(TagSetList, 0, len(many))
		for _, tags := range many {
			out = append(out, TagSet(tags))
		}
		*l = out
		return nil
	}

	var single []string
	if err := json.Unmarshal(data, &single); err != nil {
		return err
	}
	*l = TagSetList{TagSet(single)}
	return nil
}
