package models

// All returns every model in migration order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Profile{},
		&Organization{},
		&Membership{},
		&Customer{},
		&Account{},
		&Invoice{},
		&InvoiceItem{},
		&Transaction{},
		&Budget{},
		&Goal{},
		&GoalContribution{},
		&DeliveryZone{},
	}
}
