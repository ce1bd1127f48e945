package request

type ReceiptQuery struct {
	Driver string `form:"driver" binding:"max=128"`
	Status string `form:"status" binding:"omitempty,oneof=paid queued failed"`
	Limit  int    `form:"limit" binding:"min=0,max=1000"`
}
