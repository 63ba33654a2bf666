package service

import (
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/lumistore/backoffice/internal/config"
	"github.com/lumistore/backoffice/internal/domain"
)

type preorderFixture struct {
	svc       PreorderService
	preorders *mockPreorderRepository
	products  *mockProductRepository
	orders    *mockOrderRepository
	inventory *mockInventoryRepository
	notifier  *mockNotifier
	cfg       *config.Config
}

func newPreorderFixture(depositPolicy string) *preorderFixture {
	inventory := newMockInventoryRepository()
	orders := newMockOrderRepository(inventory)
	preorders := newMockPreorderRepository(inventory, orders)
	products := newMockProductRepository()
	notifier := newMockNotifier()
	cfg := &config.Config{}
	cfg.Preorder.DepositPolicy = depositPolicy

	return &preorderFixture{
		svc:       NewPreorderService(preorders, products, orders, notifier, cfg, zap.NewNop()),
		preorders: preorders,
		products:  products,
		orders:    orders,
		inventory: inventory,
		notifier:  notifier,
		cfg:       cfg,
	}
}

// seedCatalog 建一个商品+变体+库存台账，返回变体ID
func (f *preorderFixture) seedCatalog(price float64, variantPrice *float64, stock int) (int64, int64) {
	product := &domain.Product{Name: "Wool Coat", Price: price, Status: domain.ProductStatusActive}
	variant := &domain.ProductVariant{SKU: "COAT-M-BLK", Size: "M", Price: variantPrice}
	_ = f.products.Create(product, []*domain.ProductVariant{variant}, []int{stock}, []*int{nil})
	_ = f.inventory.Create(&domain.InventoryRecord{VariantID: variant.ID, Quantity: stock})
	return product.ID, variant.ID
}

func (f *preorderFixture) seedPreorder(productID, variantID int64, quantity int, deposit float64, status domain.PreorderStatus) *domain.Preorder {
	preorder := &domain.Preorder{
		CustomerID:    1,
		ProductID:     productID,
		VariantID:     variantID,
		Quantity:      quantity,
		DepositAmount: deposit,
		Status:        status,
	}
	_ = f.preorders.Create(preorder)
	return preorder
}

func TestPreorderService_Create(t *testing.T) {
	f := newPreorderFixture(config.DepositPolicyDiscount)
	productID, variantID := f.seedCatalog(100, nil, 10)

	preorder, err := f.svc.Create(&domain.CreatePreorderRequest{
		CustomerID:    1,
		ProductID:     productID,
		VariantID:     variantID,
		Quantity:      2,
		DepositAmount: 30,
	})
	if err != nil {
		t.Fatalf("Create() unexpected error: %v", err)
	}
	if preorder.Status != domain.PreorderStatusPending {
		t.Errorf("status = %s, want pending", preorder.Status)
	}

	// 创建预订单不占用库存
	record, _ := f.inventory.GetByVariantID(variantID)
	if record.Quantity != 10 {
		t.Errorf("quantity = %d, want 10 (preorder must not reserve stock)", record.Quantity)
	}
}

func TestPreorderService_Create_Validation(t *testing.T) {
	f := newPreorderFixture(config.DepositPolicyDiscount)
	productID, variantID := f.seedCatalog(100, nil, 10)

	tests := []struct {
		name string
		req  *domain.CreatePreorderRequest
	}{
		{"数量为零", &domain.CreatePreorderRequest{CustomerID: 1, ProductID: productID, VariantID: variantID, Quantity: 0}},
		{"负定金", &domain.CreatePreorderRequest{CustomerID: 1, ProductID: productID, VariantID: variantID, Quantity: 1, DepositAmount: -1}},
		{"缺少客户", &domain.CreatePreorderRequest{ProductID: productID, VariantID: variantID, Quantity: 1}},
		{"变体不属于商品", &domain.CreatePreorderRequest{CustomerID: 1, ProductID: productID + 99, VariantID: variantID, Quantity: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.svc.Create(tt.req); !errors.Is(err, domain.ErrValidation) {
				t.Errorf("Create() error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestPreorderService_Lifecycle(t *testing.T) {
	f := newPreorderFixture(config.DepositPolicyDiscount)
	productID, variantID := f.seedCatalog(100, nil, 10)
	preorder := f.seedPreorder(productID, variantID, 1, 0, domain.PreorderStatusPending)

	confirmed, err := f.svc.Confirm(preorder.ID)
	if err != nil {
		t.Fatalf("Confirm() unexpected error: %v", err)
	}
	if confirmed.Status != domain.PreorderStatusConfirmed {
		t.Errorf("status = %s, want confirmed", confirmed.Status)
	}

	ready, err := f.svc.MarkReady(preorder.ID)
	if err != nil {
		t.Fatalf("MarkReady() unexpected error: %v", err)
	}
	if ready.Status != domain.PreorderStatusReady {
		t.Errorf("status = %s, want ready", ready.Status)
	}

	cancelled, err := f.svc.Cancel(preorder.ID)
	if err != nil {
		t.Fatalf("Cancel() unexpected error: %v", err)
	}
	if cancelled.Status != domain.PreorderStatusCancelled {
		t.Errorf("status = %s, want cancelled", cancelled.Status)
	}

	if len(f.notifier.preorderEvents) != 3 {
		t.Errorf("preorder events = %d, want 3", len(f.notifier.preorderEvents))
	}
}

func TestPreorderService_Transition_Rejections(t *testing.T) {
	tests := []struct {
		name string
		from domain.PreorderStatus
		call func(f *preorderFixture, id int64) error
	}{
		{"待确认不可直接备货", domain.PreorderStatusPending, func(f *preorderFixture, id int64) error {
			_, err := f.svc.MarkReady(id)
			return err
		}},
		{"已取消不可确认", domain.PreorderStatusCancelled, func(f *preorderFixture, id int64) error {
			_, err := f.svc.Confirm(id)
			return err
		}},
		{"已转换不可取消", domain.PreorderStatusConverted, func(f *preorderFixture, id int64) error {
			_, err := f.svc.Cancel(id)
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPreorderFixture(config.DepositPolicyDiscount)
			productID, variantID := f.seedCatalog(100, nil, 10)
			preorder := f.seedPreorder(productID, variantID, 1, 0, tt.from)

			err := tt.call(f, preorder.ID)
			var transitionErr *domain.InvalidTransitionError
			if !errors.As(err, &transitionErr) {
				t.Fatalf("error = %v, want InvalidTransitionError", err)
			}
			current, _ := f.preorders.GetByID(preorder.ID)
			if current.Status != tt.from {
				t.Errorf("status changed to %s after rejected transition", current.Status)
			}
		})
	}
}

func TestPreorderService_Transition_Idempotent(t *testing.T) {
	f := newPreorderFixture(config.DepositPolicyDiscount)
	productID, variantID := f.seedCatalog(100, nil, 10)
	preorder := f.seedPreorder(productID, variantID, 1, 0, domain.PreorderStatusConfirmed)

	result, err := f.svc.Confirm(preorder.ID)
	if err != nil {
		t.Fatalf("Confirm() unexpected error: %v", err)
	}
	if result.Status != domain.PreorderStatusConfirmed {
		t.Errorf("status = %s, want confirmed", result.Status)
	}
	// 幂等重复不发事件
	if len(f.notifier.preorderEvents) != 0 {
		t.Errorf("preorder events = %d, want 0", len(f.notifier.preorderEvents))
	}
}

func TestPreorderService_ConvertToOrder(t *testing.T) {
	f := newPreorderFixture(config.DepositPolicyDiscount)
	productID, variantID := f.seedCatalog(100, nil, 10)
	preorder := f.seedPreorder(productID, variantID, 2, 30, domain.PreorderStatusReady)

	order, err := f.svc.ConvertToOrder(preorder.ID, &domain.ConvertPreorderRequest{
		ShippingCost: 10,
		Tax:          5,
		Notify:       true,
	})
	if err != nil {
		t.Fatalf("ConvertToOrder() unexpected error: %v", err)
	}

	// discount策略：total = 2*100 + 10 + 5 - 30
	if order.Total != 185 {
		t.Errorf("total = %.2f, want 185", order.Total)
	}
	if order.Discount != 30 || order.DepositApplied != 0 {
		t.Errorf("discount/deposit = %.2f/%.2f, want 30/0", order.Discount, order.DepositApplied)
	}
	if order.Status != domain.OrderStatusPending {
		t.Errorf("order status = %s, want pending", order.Status)
	}
	if len(order.Items) != 1 || order.Items[0].Quantity != 2 || order.Items[0].UnitPrice != 100 {
		t.Errorf("unexpected order items: %+v", order.Items)
	}

	// 预订单进入终态并指向新订单
	converted, _ := f.preorders.GetByID(preorder.ID)
	if converted.Status != domain.PreorderStatusConverted {
		t.Errorf("preorder status = %s, want converted", converted.Status)
	}
	if converted.ConvertedOrderID == nil || *converted.ConvertedOrderID != order.ID {
		t.Errorf("converted order id = %v, want %d", converted.ConvertedOrderID, order.ID)
	}

	// 库存扣减一次
	record, _ := f.inventory.GetByVariantID(variantID)
	if record.Quantity != 8 {
		t.Errorf("quantity = %d, want 8", record.Quantity)
	}

	if len(f.notifier.convertedEvents) != 1 {
		t.Errorf("converted events = %d, want 1", len(f.notifier.convertedEvents))
	}
}

func TestPreorderService_ConvertToOrder_PrepaymentPolicy(t *testing.T) {
	f := newPreorderFixture(config.DepositPolicyPrepayment)
	productID, variantID := f.seedCatalog(100, nil, 10)
	preorder := f.seedPreorder(productID, variantID, 2, 30, domain.PreorderStatusConfirmed)

	order, err := f.svc.ConvertToOrder(preorder.ID, &domain.ConvertPreorderRequest{ShippingCost: 10, Tax: 5})
	if err != nil {
		t.Fatalf("ConvertToOrder() unexpected error: %v", err)
	}

	// prepayment策略：定金只记账，应付总额不变
	if order.Total != 215 {
		t.Errorf("total = %.2f, want 215", order.Total)
	}
	if order.DepositApplied != 30 || order.Discount != 0 {
		t.Errorf("deposit/discount = %.2f/%.2f, want 30/0", order.DepositApplied, order.Discount)
	}
}

func TestPreorderService_ConvertToOrder_VariantPriceOverride(t *testing.T) {
	f := newPreorderFixture(config.DepositPolicyDiscount)
	variantPrice := 80.0
	productID, variantID := f.seedCatalog(100, &variantPrice, 10)
	preorder := f.seedPreorder(productID, variantID, 1, 0, domain.PreorderStatusReady)

	order, err := f.svc.ConvertToOrder(preorder.ID, &domain.ConvertPreorderRequest{})
	if err != nil {
		t.Fatalf("ConvertToOrder() unexpected error: %v", err)
	}
	if order.Subtotal != 80 {
		t.Errorf("subtotal = %.2f, want 80 (variant price overrides product price)", order.Subtotal)
	}
}

func TestPreorderService_ConvertToOrder_InsufficientStock(t *testing.T) {
	f := newPreorderFixture(config.DepositPolicyDiscount)
	productID, variantID := f.seedCatalog(100, nil, 5)
	preorder := f.seedPreorder(productID, variantID, 5, 0, domain.PreorderStatusConfirmed)

	// 转换前库存被并发调走3件，剩余不足以履约
	if err := f.inventory.AdjustStock(variantID, -3, "concurrent sale"); err != nil {
		t.Fatalf("AdjustStock() unexpected error: %v", err)
	}

	_, err := f.svc.ConvertToOrder(preorder.ID, &domain.ConvertPreorderRequest{})
	if !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("ConvertToOrder() error = %v, want ErrInsufficientStock", err)
	}

	// 全有或全无：预订单保持原状态，库存与订单均无变化
	current, _ := f.preorders.GetByID(preorder.ID)
	if current.Status != domain.PreorderStatusConfirmed {
		t.Errorf("preorder status = %s, want confirmed", current.Status)
	}
	if current.ConvertedOrderID != nil {
		t.Errorf("converted order id set on failed conversion: %d", *current.ConvertedOrderID)
	}
	record, _ := f.inventory.GetByVariantID(variantID)
	if record.Quantity != 2 {
		t.Errorf("quantity = %d, want 2", record.Quantity)
	}
	if len(f.orders.orders) != 0 {
		t.Errorf("orders created on failed conversion: %d", len(f.orders.orders))
	}
}

func TestPreorderService_ConvertToOrder_InvalidStates(t *testing.T) {
	for _, status := range []domain.PreorderStatus{
		domain.PreorderStatusPending,
		domain.PreorderStatusCancelled,
		domain.PreorderStatusConverted,
	} {
		t.Run(string(status), func(t *testing.T) {
			f := newPreorderFixture(config.DepositPolicyDiscount)
			productID, variantID := f.seedCatalog(100, nil, 10)
			preorder := f.seedPreorder(productID, variantID, 1, 0, status)

			_, err := f.svc.ConvertToOrder(preorder.ID, &domain.ConvertPreorderRequest{})
			var transitionErr *domain.InvalidTransitionError
			if !errors.As(err, &transitionErr) {
				t.Fatalf("ConvertToOrder() error = %v, want InvalidTransitionError", err)
			}
		})
	}
}

func TestPreorderService_ConvertToOrder_DepositExceedsTotal(t *testing.T) {
	f := newPreorderFixture(config.DepositPolicyDiscount)
	productID, variantID := f.seedCatalog(100, nil, 10)
	preorder := f.seedPreorder(productID, variantID, 1, 500, domain.PreorderStatusReady)

	if _, err := f.svc.ConvertToOrder(preorder.ID, &domain.ConvertPreorderRequest{}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("ConvertToOrder() error = %v, want ErrValidation", err)
	}

	// 校验失败发生在任何写入之前
	record, _ := f.inventory.GetByVariantID(variantID)
	if record.Quantity != 10 {
		t.Errorf("quantity = %d, want 10", record.Quantity)
	}
}

func TestPreorderService_BulkUpdateStatus(t *testing.T) {
	f := newPreorderFixture(config.DepositPolicyDiscount)
	productID, variantID := f.seedCatalog(100, nil, 10)
	pending := f.seedPreorder(productID, variantID, 1, 0, domain.PreorderStatusPending)
	cancelled := f.seedPreorder(productID, variantID, 1, 0, domain.PreorderStatusCancelled)

	results := f.svc.BulkUpdateStatus(&domain.BulkPreorderStatusRequest{
		IDs:    []int64{pending.ID, cancelled.ID, 999},
		Status: "confirmed",
	})
	if len(results) != 3 {
		t.Fatalf("results = %d, want 3", len(results))
	}
	if !results[0].OK {
		t.Errorf("pending preorder should confirm: %s", results[0].Error)
	}
	if results[1].OK {
		t.Error("cancelled preorder must not confirm")
	}
	if results[2].OK {
		t.Error("missing preorder must fail")
	}
}

func TestPreorderService_BulkUpdateStatus_ConvertedRejected(t *testing.T) {
	f := newPreorderFixture(config.DepositPolicyDiscount)
	productID, variantID := f.seedCatalog(100, nil, 10)
	confirmed := f.seedPreorder(productID, variantID, 1, 0, domain.PreorderStatusConfirmed)
	ready := f.seedPreorder(productID, variantID, 1, 0, domain.PreorderStatusReady)

	results := f.svc.BulkUpdateStatus(&domain.BulkPreorderStatusRequest{
		IDs:    []int64{confirmed.ID, ready.ID},
		Status: string(domain.PreorderStatusConverted),
	})
	for _, result := range results {
		if result.OK {
			t.Errorf("preorder %d reached converted without an order", result.ID)
		}
		if result.Error == "" {
			t.Errorf("preorder %d missing error message", result.ID)
		}
	}

	for _, id := range []int64{confirmed.ID, ready.ID} {
		got, err := f.preorders.GetByID(id)
		if err != nil {
			t.Fatalf("GetByID(%d) error = %v", id, err)
		}
		if got.Status == domain.PreorderStatusConverted {
			t.Errorf("preorder %d status = %s, want unchanged", id, got.Status)
		}
		if got.ConvertedOrderID != nil {
			t.Errorf("preorder %d converted_order_id = %v, want nil", id, *got.ConvertedOrderID)
		}
	}
	if n := len(f.orders.orders); n != 0 {
		t.Errorf("orders created = %d, want 0", n)
	}
}

func TestPreorderService_BulkUpdateStatus_UnknownStatus(t *testing.T) {
	f := newPreorderFixture(config.DepositPolicyDiscount)

	results := f.svc.BulkUpdateStatus(&domain.BulkPreorderStatusRequest{IDs: []int64{1, 2}, Status: "levitating"})
	for _, result := range results {
		if result.OK {
			t.Errorf("result %d OK with unknown status", result.ID)
		}
	}
}
