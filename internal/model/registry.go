package model

// AllModels 返回本地库需要迁移的模型
// 新增表时，只需要在这里添加即可
func AllModels() []interface{} {
	return []interface{}{
		&TransactionRecord{},
		&ReceiptRecord{},
		&AdminUser{},
		&QueuedPayment{},
	}
}
