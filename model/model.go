package model

// All lists the persisted models in migration order.
func All() []interface{} {
	return []interface{}{
		&Profile{},
		&Product{},
		&Table{},
		&Order{},
		&OrderItem{},
		&CashSession{},
		&WorkSession{},
		&WaiterCall{},
	}
}
