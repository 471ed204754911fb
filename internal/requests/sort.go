package requests

import (
	"sort"

	"request-service/internal/model"
)

type SortKey string

const (
	SortByDate  SortKey = "date"
	SortByVotes SortKey = "votes"
)

// DefaultTopLimit is the size of the public top list.
const DefaultTopLimit = 10

// ParseSort falls back to SortByDate for unknown values.
func ParseSort(s string) SortKey {
	if SortKey(s) == SortByVotes {
		return SortByVotes
	}
	return SortByDate
}

// SortRequests orders list in place: newest first by date, or most voted
// first with newest breaking ties.
func SortRequests(list []model.Request, by SortKey) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if by == SortByVotes && a.VoteCount != b.VoteCount {
			return a.VoteCount > b.VoteCount
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
}

// TopRequests returns at most limit requests by votes.
func TopRequests(list []model.Request, limit int) []model.Request {
	if limit <= 0 {
		limit = DefaultTopLimit
	}
	out := append([]model.Request(nil), list...)
	SortRequests(out, SortByVotes)
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
