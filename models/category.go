package models

// CategoryAll 代表不篩選分類的虛擬分類
const CategoryAll = "all"

type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
