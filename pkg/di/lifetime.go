package di

// Lifetime은 등록된 Resolver가 만든 인스턴스를 얼마나 재사용할지 정합니다.
type Lifetime int

const (
	// Transient는 Resolve 때마다 새 인스턴스를 만듭니다. 기본값입니다.
	Transient Lifetime = iota
	// Scoped는 Scope 하나당 인스턴스 하나를 유지합니다.
	Scoped
	// Singleton은 루트 Container에 인스턴스 하나를 유지합니다.
	Singleton
)

func (l Lifetime) String() string {
	switch l {
	case Transient:
		return "transient"
	case Scoped:
		return "scoped"
	case Singleton:
		return "singleton"
	default:
		return "unknown"
	}
}
