package main

import "time"

// OrderCreated는 Kafka / RabbitMQ에서 들어오는 주문 생성 이벤트입니다.
type OrderCreated struct {
	OrderID int64     `json:"order_id"`
	At      time.Time `json:"at"`
}

// OrderAccepted는 주문을 받은 뒤 세션에서 Emit하는 이벤트입니다.
type OrderAccepted struct {
	OrderID int64     `json:"order_id"`
	By      string    `json:"by"`
	At      time.Time `json:"at"`
}
