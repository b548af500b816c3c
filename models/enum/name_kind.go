package enum

// NameKind 表示使用者姓名的表示方式
type NameKind string

const (
	NameKindSingle NameKind = "single"
	NameKindSplit  NameKind = "split"
)
