package enums

type MatchKind string

const (
	MatchKindLike      MatchKind = "like"
	MatchKindSuperLike MatchKind = "superlike"
)
