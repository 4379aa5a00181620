package enums

type InterestKind string

const (
	InterestKindLike      InterestKind = "like"
	InterestKindSuperLike InterestKind = "superlike"
)
