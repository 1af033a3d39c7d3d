package boot

/*
Kafka 연결 설정입니다.
토픽 하나에 등록된 핸들러는 컨슈머 세션 하나(연결 하나, Scope 하나)로 실행됩니다.
*/
type KafkaOptions struct {
	// Kafka 브로커 주소 목록
	Brokers []string

	/*
		이벤트 소비 설정
		nil이면 Kafka 컨슈머 런타임은 시작되지 않습니다.
	*/
	Read *KafkaReadOptions

	/*
		세션 Emit 설정
		nil이면 Kafka 세션에서 Emit한 이벤트는 버려집니다.
	*/
	Write *KafkaWriteOptions
}

// KafkaWriteOptions는 세션에서 Emit한 이벤트를 토픽으로 보낼 때의 규칙입니다.
type KafkaWriteOptions struct {
	// 이벤트 이름 앞에 붙일 Topic Prefix
	TopicPrefix string
}

type KafkaReadOptions struct {
	// Kafka Consumer Group ID
	GroupID string
}
