package domain

// OrderRepository описывает требования к хранилищу заказов.
type OrderRepository interface {
	// Create сохраняет новый заказ. Возвращает ошибку, если запись с таким ID уже существует.
	Create(order Order) error
	// Get возвращает заказ по идентификатору или ErrOrderNotFound, если его нет.
	Get(id string) (Order, error)
	// GetByNumber возвращает заказ по бизнес-номеру.
	GetByNumber(orderNumber string) (Order, error)
	// ListByMember возвращает заказы участника с опциональным ограничением на количество.
	ListByMember(memberID string, limit int) ([]Order, error)
	// Save применяет обновления к заказу с учётом optimistic locking.
	Save(order Order) error
}

// FailureLogRepository хранит записи о сбоях компенсаций. Записи не удаляются:
// разрешённые остаются как аудиторский след.
type FailureLogRepository interface {
	Create(failureLog FailureLog) (FailureLog, error)
	Get(id string) (FailureLog, error)
	// ListPending возвращает записи в статусе PENDING для планировщика повторов.
	ListPending() ([]FailureLog, error)
	Save(failureLog FailureLog) error
}

// DeliveryRepository хранит доставки. Create обязан обеспечивать уникальность
// по номеру заказа и возвращать ErrDeliveryExists при дубликате — это ключ
// дедупликации при повторной доставке события.
type DeliveryRepository interface {
	Create(delivery Delivery) error
	Get(id string) (Delivery, error)
	GetByOrderNumber(orderNumber string) (Delivery, error)
	Save(delivery Delivery) error
}

// ReviewRepository хранит отзывы.
type ReviewRepository interface {
	Create(review Review) error
	Get(id string) (Review, error)
	// ListByOrderItems возвращает отзывы, привязанные к любым из позиций заказа.
	ListByOrderItems(orderItemIDs []string) ([]Review, error)
	Save(review Review) error
}

// ProductRepository хранит проекцию товаров для саги и статистики отзывов.
type ProductRepository interface {
	Create(product Product) error
	Get(id string) (Product, error)
	Save(product Product) error
}
