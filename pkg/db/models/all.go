package models

// All lists every persisted model, in dependency order, for AutoMigrate in dev and tests.
func All() []any {
	return []any{
		&User{},
		&Product{},
		&ProductVariation{},
		&Cart{},
		&CartItem{},
		&Order{},
		&Shipment{},
		&ReturnRequest{},
		&LocalSale{},
		&SiteSetting{},
		&Notification{},
		&OutboxEvent{},
		&OutboxDLQ{},
	}
}
