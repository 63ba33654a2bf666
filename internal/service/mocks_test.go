package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/lumistore/backoffice/internal/domain"
	"github.com/lumistore/backoffice/internal/mq"
)

// Mock InventoryRepository for testing
// 模拟条件UPDATE语义：任何会导致负库存的操作直接失败。
type mockInventoryRepository struct {
	mu           sync.Mutex
	records      map[int64]*domain.InventoryRecord // variantID -> record
	reservations map[string]*domain.Reservation
	movements    []*domain.StockMovement
	nextID       int64
}

func newMockInventoryRepository() *mockInventoryRepository {
	return &mockInventoryRepository{
		records:      make(map[int64]*domain.InventoryRecord),
		reservations: make(map[string]*domain.Reservation),
		nextID:       1,
	}
}

func (m *mockInventoryRepository) Create(record *domain.InventoryRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	record.ID = m.nextID
	m.nextID++
	if record.LowStockThreshold <= 0 {
		record.LowStockThreshold = domain.DefaultLowStockThreshold
	}
	m.records[record.VariantID] = record
	return nil
}

func (m *mockInventoryRepository) GetByVariantID(variantID int64) (*domain.InventoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, exists := m.records[variantID]
	if !exists {
		return nil, domain.ErrNotFound
	}
	copied := *record
	return &copied, nil
}

func (m *mockInventoryRepository) UpdateThreshold(variantID int64, threshold int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, exists := m.records[variantID]
	if !exists {
		return domain.ErrNotFound
	}
	record.LowStockThreshold = threshold
	record.Version++
	return nil
}

func (m *mockInventoryRepository) AdjustStock(variantID int64, delta int, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.adjustLocked(variantID, delta, "adjust", reason)
}

// adjustLocked 复刻条件UPDATE：不足时失败且不产生任何变更
func (m *mockInventoryRepository) adjustLocked(variantID int64, delta int, movementType, reason string) error {
	record, exists := m.records[variantID]
	if !exists {
		return domain.ErrNotFound
	}
	if delta == 0 {
		return nil
	}
	if record.Quantity+delta < 0 {
		return domain.ErrInsufficientStock
	}
	record.Quantity += delta
	record.Version++
	m.movements = append(m.movements, &domain.StockMovement{
		VariantID: variantID,
		Delta:     delta,
		Type:      movementType,
		Reason:    reason,
	})
	return nil
}

func (m *mockInventoryRepository) Reserve(variantID int64, quantity int, token string) (*domain.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.adjustLocked(variantID, -quantity, "reserve", "reservation "+token); err != nil {
		return nil, err
	}

	reservation := &domain.Reservation{
		ID:        m.nextID,
		Token:     token,
		VariantID: variantID,
		Quantity:  quantity,
		Status:    domain.ReservationStatusActive,
		CreatedAt: time.Now(),
	}
	m.nextID++
	m.reservations[token] = reservation
	copied := *reservation
	return &copied, nil
}

func (m *mockInventoryRepository) Release(token string) (*domain.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	reservation, exists := m.reservations[token]
	if !exists {
		return nil, domain.ErrUnknownToken
	}
	if reservation.Status != domain.ReservationStatusActive {
		return nil, domain.ErrDoubleRelease
	}

	if err := m.adjustLocked(reservation.VariantID, reservation.Quantity, "release", "reservation "+token); err != nil {
		return nil, err
	}
	now := time.Now()
	reservation.Status = domain.ReservationStatusReleased
	reservation.ReleasedAt = &now
	copied := *reservation
	return &copied, nil
}

func (m *mockInventoryRepository) GetReservation(token string) (*domain.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	reservation, exists := m.reservations[token]
	if !exists {
		return nil, domain.ErrUnknownToken
	}
	copied := *reservation
	return &copied, nil
}

func (m *mockInventoryRepository) List(req *domain.InventoryListRequest) ([]*domain.InventoryRecord, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []*domain.InventoryRecord
	for _, record := range m.records {
		if req.VariantID != nil && record.VariantID != *req.VariantID {
			continue
		}
		if req.LowStock != nil && *req.LowStock && !record.IsLowStock() {
			continue
		}
		copied := *record
		result = append(result, &copied)
	}
	return result, int64(len(result)), nil
}

func (m *mockInventoryRepository) ListLowStock(threshold *int) ([]*domain.InventoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []*domain.InventoryRecord
	for _, record := range m.records {
		limit := record.LowStockThreshold
		if threshold != nil {
			limit = *threshold
		}
		if record.Quantity <= limit {
			copied := *record
			result = append(result, &copied)
		}
	}
	return result, nil
}

func (m *mockInventoryRepository) Movements(variantID int64, limit int) ([]*domain.StockMovement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []*domain.StockMovement
	for _, movement := range m.movements {
		if movement.VariantID == variantID {
			result = append(result, movement)
		}
	}
	if len(result) > limit {
		result = result[len(result)-limit:]
	}
	return result, nil
}

func (m *mockInventoryRepository) Stats() (*domain.InventoryStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := &domain.InventoryStats{}
	for _, record := range m.records {
		stats.TotalVariants++
		stats.TotalQuantity += int64(record.Quantity)
		if record.IsLowStock() {
			stats.LowStockVariants++
		}
		if record.Quantity == 0 {
			stats.OutOfStockVariants++
		}
	}
	for _, reservation := range m.reservations {
		if reservation.Status == domain.ReservationStatusActive {
			stats.ActiveReservations++
		}
	}
	return stats, nil
}

// Mock OrderRepository for testing
type mockOrderRepository struct {
	orders    map[int64]*domain.Order
	timelines map[int64][]*domain.TimelineEvent
	inventory *mockInventoryRepository // 取消回补库存时使用
	nextID    int64
}

func newMockOrderRepository(inventory *mockInventoryRepository) *mockOrderRepository {
	return &mockOrderRepository{
		orders:    make(map[int64]*domain.Order),
		timelines: make(map[int64][]*domain.TimelineEvent),
		inventory: inventory,
		nextID:    1,
	}
}

func (m *mockOrderRepository) Create(order *domain.Order) error {
	order.ID = m.nextID
	m.nextID++
	for _, item := range order.Items {
		item.OrderID = order.ID
	}
	m.orders[order.ID] = order
	m.appendTimeline(order.ID, order.Status, "order created")
	return nil
}

func (m *mockOrderRepository) GetByID(id int64) (*domain.Order, error) {
	order, exists := m.orders[id]
	if !exists {
		return nil, domain.ErrNotFound
	}
	copied := *order
	return &copied, nil
}

func (m *mockOrderRepository) GetByOrderNumber(orderNumber string) (*domain.Order, error) {
	for _, order := range m.orders {
		if order.OrderNumber == orderNumber {
			copied := *order
			return &copied, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockOrderRepository) List(req *domain.OrderListRequest) ([]*domain.Order, int64, error) {
	var result []*domain.Order
	for _, order := range m.orders {
		if req.Status != nil && order.Status != *req.Status {
			continue
		}
		if req.CustomerID != nil && order.CustomerID != *req.CustomerID {
			continue
		}
		copied := *order
		result = append(result, &copied)
	}
	return result, int64(len(result)), nil
}

func (m *mockOrderRepository) Recent(limit int) ([]*domain.Order, error) {
	var result []*domain.Order
	for _, order := range m.orders {
		copied := *order
		result = append(result, &copied)
		if len(result) >= limit {
			break
		}
	}
	return result, nil
}

func (m *mockOrderRepository) Timeline(orderID int64) ([]*domain.TimelineEvent, error) {
	return m.timelines[orderID], nil
}

func (m *mockOrderRepository) TransitionStatus(orderID int64, from, to domain.OrderStatus, note string) error {
	order, exists := m.orders[orderID]
	if !exists {
		return domain.ErrNotFound
	}
	// from守卫
	if order.Status != from {
		return domain.ErrConflict
	}
	order.Status = to
	m.appendTimeline(orderID, to, note)

	if to == domain.OrderStatusCancelled && m.inventory != nil {
		for _, item := range order.Items {
			if item.ReservationToken != nil {
				if _, err := m.inventory.Release(*item.ReservationToken); err != nil {
					return err
				}
				continue
			}
			if err := m.inventory.AdjustStock(item.VariantID, item.Quantity, fmt.Sprintf("order %d cancelled", orderID)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *mockOrderRepository) Stats(from, to *time.Time) (*domain.OrderStats, error) {
	stats := &domain.OrderStats{CountByStatus: make(map[domain.OrderStatus]int64)}
	for _, order := range m.orders {
		stats.TotalOrders++
		stats.CountByStatus[order.Status]++
		if order.Status != domain.OrderStatusCancelled && order.Status != domain.OrderStatusRefunded {
			stats.TotalRevenue += order.Total
		}
	}
	return stats, nil
}

func (m *mockOrderRepository) appendTimeline(orderID int64, status domain.OrderStatus, note string) {
	m.timelines[orderID] = append(m.timelines[orderID], &domain.TimelineEvent{
		ID:        int64(len(m.timelines[orderID]) + 1),
		OrderID:   orderID,
		Status:    status,
		Note:      note,
		CreatedAt: time.Now(),
	})
}

// Mock PreorderRepository for testing
// Convert复刻仓储的全有或全无语义：库存扣减失败时预订单保持原状态。
type mockPreorderRepository struct {
	preorders map[int64]*domain.Preorder
	inventory *mockInventoryRepository
	orders    *mockOrderRepository
	nextID    int64
}

func newMockPreorderRepository(inventory *mockInventoryRepository, orders *mockOrderRepository) *mockPreorderRepository {
	return &mockPreorderRepository{
		preorders: make(map[int64]*domain.Preorder),
		inventory: inventory,
		orders:    orders,
		nextID:    1,
	}
}

func (m *mockPreorderRepository) Create(preorder *domain.Preorder) error {
	preorder.ID = m.nextID
	m.nextID++
	m.preorders[preorder.ID] = preorder
	return nil
}

func (m *mockPreorderRepository) GetByID(id int64) (*domain.Preorder, error) {
	preorder, exists := m.preorders[id]
	if !exists {
		return nil, domain.ErrNotFound
	}
	copied := *preorder
	return &copied, nil
}

func (m *mockPreorderRepository) List(req *domain.PreorderListRequest) ([]*domain.Preorder, int64, error) {
	var result []*domain.Preorder
	for _, preorder := range m.preorders {
		if req.Status != nil && preorder.Status != *req.Status {
			continue
		}
		if req.CustomerID != nil && preorder.CustomerID != *req.CustomerID {
			continue
		}
		if req.ProductID != nil && preorder.ProductID != *req.ProductID {
			continue
		}
		copied := *preorder
		result = append(result, &copied)
	}
	return result, int64(len(result)), nil
}

func (m *mockPreorderRepository) UpdateStatus(id int64, from, to domain.PreorderStatus) error {
	preorder, exists := m.preorders[id]
	if !exists {
		return domain.ErrNotFound
	}
	if preorder.Status != from {
		return domain.ErrConflict
	}
	preorder.Status = to
	return nil
}

func (m *mockPreorderRepository) Convert(preorder *domain.Preorder, order *domain.Order) error {
	stored, exists := m.preorders[preorder.ID]
	if !exists {
		return domain.ErrNotFound
	}
	if stored.Status != preorder.Status || stored.ConvertedOrderID != nil {
		return domain.ErrConflict
	}

	// 条件扣减，失败则什么都不发生
	if err := m.inventory.AdjustStock(preorder.VariantID, -preorder.Quantity, fmt.Sprintf("preorder %d converted", preorder.ID)); err != nil {
		return err
	}

	if err := m.orders.Create(order); err != nil {
		return err
	}

	stored.Status = domain.PreorderStatusConverted
	stored.ConvertedOrderID = &order.ID
	preorder.Status = domain.PreorderStatusConverted
	preorder.ConvertedOrderID = &order.ID
	return nil
}

func (m *mockPreorderRepository) CountByStatus() (map[domain.PreorderStatus]int64, error) {
	counts := make(map[domain.PreorderStatus]int64)
	for _, preorder := range m.preorders {
		counts[preorder.Status]++
	}
	return counts, nil
}

// Mock ProductRepository for testing
type mockProductRepository struct {
	products map[int64]*domain.Product
	variants map[int64]*domain.ProductVariant
	nextID   int64
}

func newMockProductRepository() *mockProductRepository {
	return &mockProductRepository{
		products: make(map[int64]*domain.Product),
		variants: make(map[int64]*domain.ProductVariant),
		nextID:   1,
	}
}

func (m *mockProductRepository) Create(product *domain.Product, variants []*domain.ProductVariant, initialStocks []int, thresholds []*int) error {
	product.ID = m.nextID
	m.nextID++
	m.products[product.ID] = product

	for _, variant := range variants {
		variant.ID = m.nextID
		m.nextID++
		variant.ProductID = product.ID
		m.variants[variant.ID] = variant
	}
	return nil
}

func (m *mockProductRepository) GetByID(id int64) (*domain.Product, error) {
	product, exists := m.products[id]
	if !exists || product.Status == domain.ProductStatusDeleted {
		return nil, domain.ErrNotFound
	}
	copied := *product
	return &copied, nil
}

func (m *mockProductRepository) Update(id int64, req *domain.UpdateProductRequest) error {
	product, exists := m.products[id]
	if !exists || product.Status == domain.ProductStatusDeleted {
		return domain.ErrNotFound
	}
	if req.Name != nil {
		product.Name = *req.Name
	}
	if req.Description != nil {
		product.Description = *req.Description
	}
	if req.Price != nil {
		product.Price = *req.Price
	}
	if req.Brand != nil {
		product.Brand = *req.Brand
	}
	if req.Status != nil {
		product.Status = *req.Status
	}
	if req.ImageURL != nil {
		product.ImageURL = *req.ImageURL
	}
	return nil
}

func (m *mockProductRepository) SoftDelete(id int64) error {
	product, exists := m.products[id]
	if !exists || product.Status == domain.ProductStatusDeleted {
		return domain.ErrNotFound
	}
	product.Status = domain.ProductStatusDeleted
	return nil
}

func (m *mockProductRepository) List(req *domain.ProductListRequest) ([]*domain.Product, int64, error) {
	var result []*domain.Product
	for _, product := range m.products {
		if product.Status == domain.ProductStatusDeleted {
			continue
		}
		if req.Status != nil && product.Status != *req.Status {
			continue
		}
		copied := *product
		result = append(result, &copied)
	}
	return result, int64(len(result)), nil
}

func (m *mockProductRepository) GetVariantByID(id int64) (*domain.ProductVariant, error) {
	variant, exists := m.variants[id]
	if !exists {
		return nil, domain.ErrNotFound
	}
	copied := *variant
	return &copied, nil
}

func (m *mockProductRepository) ListVariantsByProductID(productID int64) ([]*domain.ProductVariant, error) {
	var result []*domain.ProductVariant
	for _, variant := range m.variants {
		if variant.ProductID == productID {
			copied := *variant
			result = append(result, &copied)
		}
	}
	return result, nil
}

func (m *mockProductRepository) SearchByTags(tags []string, limit int) ([]*domain.Product, error) {
	var result []*domain.Product
	for _, product := range m.products {
		if product.Status == domain.ProductStatusDeleted {
			continue
		}
		for _, tag := range tags {
			lowered := strings.ToLower(tag)
			if strings.Contains(strings.ToLower(product.Name), lowered) ||
				strings.Contains(strings.ToLower(product.Brand), lowered) ||
				strings.Contains(strings.ToLower(product.Description), lowered) {
				copied := *product
				result = append(result, &copied)
				break
			}
		}
		if len(result) >= limit {
			break
		}
	}
	return result, nil
}

// Mock ReviewRepository for testing
type mockReviewRepository struct {
	reviews      map[int64]*domain.Review
	nextID       int64
	statusWrites int
}

func newMockReviewRepository() *mockReviewRepository {
	return &mockReviewRepository{
		reviews: make(map[int64]*domain.Review),
		nextID:  1,
	}
}

func (m *mockReviewRepository) Create(review *domain.Review) error {
	review.ID = m.nextID
	m.nextID++
	m.reviews[review.ID] = review
	return nil
}

func (m *mockReviewRepository) GetByID(id int64) (*domain.Review, error) {
	review, exists := m.reviews[id]
	if !exists || review.DeletedAt != nil {
		return nil, domain.ErrNotFound
	}
	copied := *review
	return &copied, nil
}

func (m *mockReviewRepository) List(req *domain.ReviewListRequest) ([]*domain.Review, int64, error) {
	var result []*domain.Review
	for _, review := range m.reviews {
		if review.DeletedAt != nil {
			continue
		}
		if req.Status != nil && review.Status != *req.Status {
			continue
		}
		if req.ProductID != nil && review.ProductID != *req.ProductID {
			continue
		}
		if req.Rating != nil && review.Rating != *req.Rating {
			continue
		}
		copied := *review
		result = append(result, &copied)
	}
	return result, int64(len(result)), nil
}

func (m *mockReviewRepository) UpdateStatus(id int64, status domain.ReviewStatus, flagReason string) error {
	review, exists := m.reviews[id]
	if !exists || review.DeletedAt != nil {
		return domain.ErrNotFound
	}
	m.statusWrites++
	review.Status = status
	if flagReason != "" {
		review.FlagReason = flagReason
	}
	return nil
}

func (m *mockReviewRepository) SetReply(id int64, reply string) error {
	review, exists := m.reviews[id]
	if !exists || review.DeletedAt != nil {
		return domain.ErrNotFound
	}
	if review.Reply != nil {
		return domain.ErrConflict
	}
	now := time.Now()
	review.Reply = &reply
	review.RepliedAt = &now
	return nil
}

func (m *mockReviewRepository) SoftDelete(id int64) error {
	review, exists := m.reviews[id]
	if !exists || review.DeletedAt != nil {
		return domain.ErrNotFound
	}
	now := time.Now()
	review.DeletedAt = &now
	return nil
}

func (m *mockReviewRepository) Stats() (*domain.ReviewStats, error) {
	stats := &domain.ReviewStats{
		CountByStatus: make(map[domain.ReviewStatus]int64),
		CountByRating: make(map[int]int64),
	}
	var ratingSum int64
	for _, review := range m.reviews {
		if review.DeletedAt != nil {
			continue
		}
		stats.Total++
		stats.CountByStatus[review.Status]++
		stats.CountByRating[review.Rating]++
		ratingSum += int64(review.Rating)
	}
	if stats.Total > 0 {
		stats.AverageRating = float64(ratingSum) / float64(stats.Total)
	}
	return stats, nil
}

// Mock CustomerRepository for testing
type mockCustomerRepository struct {
	customers map[int64]*domain.Customer
}

func newMockCustomerRepository() *mockCustomerRepository {
	return &mockCustomerRepository{customers: make(map[int64]*domain.Customer)}
}

func (m *mockCustomerRepository) GetByID(id int64) (*domain.Customer, error) {
	customer, exists := m.customers[id]
	if !exists {
		return nil, domain.ErrNotFound
	}
	copied := *customer
	return &copied, nil
}

func (m *mockCustomerRepository) List(req *domain.CustomerListRequest) ([]*domain.Customer, int64, error) {
	var result []*domain.Customer
	for _, customer := range m.customers {
		if s := strings.TrimSpace(req.Search); s != "" {
			lowered := strings.ToLower(s)
			if !strings.Contains(strings.ToLower(customer.Name), lowered) &&
				!strings.Contains(strings.ToLower(customer.Email), lowered) {
				continue
			}
		}
		copied := *customer
		result = append(result, &copied)
	}
	return result, int64(len(result)), nil
}

func (m *mockCustomerRepository) Count() (int64, error) {
	return int64(len(m.customers)), nil
}

// Mock UserRepository for testing
type mockUserRepository struct {
	users  map[int64]*domain.User
	nextID int64
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{
		users:  make(map[int64]*domain.User),
		nextID: 1,
	}
}

func (m *mockUserRepository) Create(user *domain.User) error {
	user.ID = m.nextID
	m.nextID++
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepository) GetByID(id int64) (*domain.User, error) {
	user, exists := m.users[id]
	if !exists {
		return nil, domain.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (m *mockUserRepository) GetByUsername(username string) (*domain.User, error) {
	for _, user := range m.users {
		if user.Username == username {
			copied := *user
			return &copied, nil
		}
	}
	return nil, domain.ErrNotFound
}

// Mock Notifier for testing
type mockNotifier struct {
	orderEvents     []*mq.OrderStatusEvent
	preorderEvents  []*mq.PreorderStatusEvent
	convertedEvents []*mq.PreorderConvertedEvent
	lowStockEvents  []*mq.LowStockEvent
}

func newMockNotifier() *mockNotifier {
	return &mockNotifier{}
}

func (m *mockNotifier) OrderStatusChanged(event *mq.OrderStatusEvent) {
	m.orderEvents = append(m.orderEvents, event)
}

func (m *mockNotifier) PreorderStatusChanged(event *mq.PreorderStatusEvent) {
	m.preorderEvents = append(m.preorderEvents, event)
}

func (m *mockNotifier) PreorderConverted(event *mq.PreorderConvertedEvent) {
	m.convertedEvents = append(m.convertedEvents, event)
}

func (m *mockNotifier) LowStock(event *mq.LowStockEvent) {
	m.lowStockEvents = append(m.lowStockEvents, event)
}

// Mock vision.Client for testing
type mockVisionClient struct {
	tags []string
	err  error
}

func (m *mockVisionClient) Tags(ctx context.Context, imageURL string) ([]string, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.tags, nil
}
