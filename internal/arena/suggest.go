package arena

import (
	"sort"

	"arena-sheets/lib/textutil"

	"github.com/antzucaro/matchr"
)

// MinJoinSimilarity is the Jaro-Winkler similarity above which an unjoined
// roster name is reported as a probable attendance match.
const MinJoinSimilarity = 0.9

// JoinSuggestion is a roster name that did not join any attendance record
// exactly, paired with the closest unclaimed attendance name.
type JoinSuggestion struct {
	RosterName     string
	AttendanceName string
	Similarity     float64
}

// SuggestJoins compares the names that failed the exact join after
// normalizing both sides. It never changes the join, the suggestions are
// only reported.
func SuggestJoins(data ClassData) []JoinSuggestion {
	claimed := make(map[string]struct{})
	var unjoined []string
	for _, p := range data.Roster {
		if p.AttendanceJoined {
			claimed[p.FullName] = struct{}{}
			continue
		}
		unjoined = append(unjoined, p.FullName)
	}

	var unclaimed []string
	for _, r := range data.Attendance.Records {
		if _, ok := claimed[r.FullName]; ok {
			continue
		}
		unclaimed = append(unclaimed, r.FullName)
	}

	var result []JoinSuggestion
	matched := make(map[string]struct{})
	for _, left := range unjoined {
		normalizedLeft := textutil.NormalizeName(left)

		var mostSimilarity float64
		var mostSimilar string
		for _, right := range unclaimed {
			if _, ok := matched[right]; ok {
				continue
			}
			similarity := matchr.JaroWinkler(normalizedLeft, textutil.NormalizeName(right), false)
			if similarity > mostSimilarity {
				mostSimilarity = similarity
				mostSimilar = right
			}
		}

		if mostSimilarity >= MinJoinSimilarity {
			result = append(result, JoinSuggestion{
				RosterName:     left,
				AttendanceName: mostSimilar,
				Similarity:     mostSimilarity,
			})
			matched[mostSimilar] = struct{}{}
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Similarity > result[j].Similarity
	})
	return result
}
