package firestore

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domain "github.com/nutriform/api/internal/domain"
	pfirestore "github.com/nutriform/api/internal/platform/firestore"
	"github.com/nutriform/api/internal/repositories"
)

const (
	orderCollection        = "orders"
	orderItemSubcollection = "items"
)

// OrderRepository persists order headers with their line items in Firestore.
// Items live in a subcollection and are always written in the same
// transaction as the header.
type OrderRepository struct {
	base     *pfirestore.BaseRepository[orderDocument]
	provider *pfirestore.Provider
}

// NewOrderRepository constructs a Firestore-backed order repository.
func NewOrderRepository(provider *pfirestore.Provider) (*OrderRepository, error) {
	if provider == nil {
		return nil, errors.New("order repository requires firestore provider")
	}
	return &OrderRepository{
		base:     pfirestore.NewBaseRepository[orderDocument](provider, orderCollection),
		provider: provider,
	}, nil
}

// InsertWithItems writes the order header and every line item atomically.
// The order is never visible without its items.
func (r *OrderRepository) InsertWithItems(ctx context.Context, order domain.Order) error {
	if r == nil || r.provider == nil {
		return errors.New("order repository not initialised")
	}
	id := strings.TrimSpace(order.ID)
	if id == "" {
		return errors.New("order repository: order id is required")
	}
	if strings.TrimSpace(order.OrderNumber) == "" {
		return errors.New("order repository: order number is required")
	}
	if len(order.Items) == 0 {
		return errors.New("order repository: order has no items")
	}

	coll, err := r.base.CollectionRef(ctx)
	if err != nil {
		return err
	}

	doc := fromDomainOrder(order)
	err = r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		orderRef := coll.Doc(id)
		if err := tx.Create(orderRef, doc); err != nil {
			return err
		}
		items := orderRef.Collection(orderItemSubcollection)
		for _, item := range order.Items {
			itemDoc := orderItemDocument{
				ProductID:   strings.TrimSpace(item.ProductID),
				ProductName: strings.TrimSpace(item.ProductName),
				Quantity:    item.Quantity,
				Price:       item.Price,
			}
			if err := tx.Create(items.NewDoc(), itemDoc); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return pfirestore.WrapError("orders.insert", err)
	}
	return nil
}

// FindByNumber loads an order by its customer-facing order number, scoped to
// the owning customer, including its items.
func (r *OrderRepository) FindByNumber(ctx context.Context, customerID string, orderNumber string) (domain.Order, error) {
	if r == nil || r.base == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	customerID = strings.TrimSpace(customerID)
	orderNumber = strings.TrimSpace(orderNumber)
	if customerID == "" {
		return domain.Order{}, errors.New("order repository: customer id is required")
	}
	if orderNumber == "" {
		return domain.Order{}, errors.New("order repository: order number is required")
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("customerId", "==", customerID).
			Where("orderNumber", "==", orderNumber).
			Limit(1)
	})
	if err != nil {
		return domain.Order{}, err
	}
	if len(docs) == 0 {
		return domain.Order{}, pfirestore.WrapError("orders.find_by_number", status.Error(codes.NotFound, "order not found"))
	}

	order := docs[0].Data.toDomain(docs[0].ID)
	items, err := r.loadItems(ctx, docs[0].ID)
	if err != nil {
		return domain.Order{}, err
	}
	order.Items = items
	return order, nil
}

// ListByCustomer returns the customer's orders newest first with cursor
// pagination. Items are loaded per order.
func (r *OrderRepository) ListByCustomer(ctx context.Context, customerID string, pager domain.Pagination) (domain.CursorPage[domain.Order], error) {
	if r == nil || r.base == nil {
		return domain.CursorPage[domain.Order]{}, errors.New("order repository not initialised")
	}
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return domain.CursorPage[domain.Order]{}, errors.New("order repository: customer id is required")
	}

	limit := pager.PageSize
	if limit < 0 {
		limit = 0
	}
	fetchLimit := limit
	if limit > 0 {
		fetchLimit = limit + 1
	}

	var startAfter []any
	if token := strings.TrimSpace(pager.PageToken); token != "" {
		tokenTime, tokenID, err := decodeOrderListToken(token)
		if err != nil {
			return domain.CursorPage[domain.Order]{}, fmt.Errorf("order repository: invalid page token: %w", err)
		}
		startAfter = []any{tokenTime, tokenID}
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		q = q.Where("customerId", "==", customerID).
			OrderBy("createdAt", firestore.Desc).
			OrderBy(firestore.DocumentID, firestore.Desc)
		if len(startAfter) == 2 {
			q = q.StartAfter(startAfter...)
		}
		if fetchLimit > 0 {
			q = q.Limit(fetchLimit)
		}
		return q
	})
	if err != nil {
		return domain.CursorPage[domain.Order]{}, err
	}

	nextToken := ""
	if limit > 0 && len(docs) == fetchLimit {
		last := docs[len(docs)-1]
		tokenTime := last.Data.CreatedAt
		if tokenTime.IsZero() {
			tokenTime = last.CreateTime
		}
		nextToken = encodeOrderListToken(tokenTime, last.ID)
		docs = docs[:len(docs)-1]
	}

	items := make([]domain.Order, 0, len(docs))
	for _, doc := range docs {
		order := doc.Data.toDomain(doc.ID)
		lines, err := r.loadItems(ctx, doc.ID)
		if err != nil {
			return domain.CursorPage[domain.Order]{}, err
		}
		order.Items = lines
		items = append(items, order)
	}

	return domain.CursorPage[domain.Order]{
		Items:         items,
		NextPageToken: nextToken,
	}, nil
}

// MarkNeedsReconciliation flags an order whose follow-up writes failed after
// the header committed.
func (r *OrderRepository) MarkNeedsReconciliation(ctx context.Context, orderID string, reason string, at time.Time) error {
	if r == nil || r.base == nil {
		return errors.New("order repository not initialised")
	}
	if strings.TrimSpace(orderID) == "" {
		return errors.New("order repository: order id is required")
	}

	_, err := r.base.Update(ctx, orderID, []firestore.Update{
		{Path: "status", Value: string(domain.OrderStatusNeedsReconciliation)},
		{Path: "metadata.reconciliationReason", Value: strings.TrimSpace(reason)},
		{Path: "metadata.reconciliationAt", Value: at.UTC()},
	})
	return err
}

func (r *OrderRepository) loadItems(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	coll, err := r.base.CollectionRef(ctx)
	if err != nil {
		return nil, err
	}

	iter := coll.Doc(orderID).Collection(orderItemSubcollection).Documents(ctx)
	defer iter.Stop()

	var items []domain.OrderItem
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, pfirestore.WrapError("orders.items", err)
		}
		var doc orderItemDocument
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode order item %s: %w", snap.Ref.ID, err)
		}
		items = append(items, domain.OrderItem{
			OrderID:     orderID,
			ProductID:   doc.ProductID,
			ProductName: doc.ProductName,
			Quantity:    doc.Quantity,
			Price:       doc.Price,
		})
	}
	return items, nil
}

type orderDocument struct {
	OrderNumber       string          `firestore:"orderNumber"`
	CustomerID        string          `firestore:"customerId"`
	Status            string          `firestore:"status"`
	TotalAmount       int64           `firestore:"totalAmount"`
	ShippingAmount    int64           `firestore:"shippingAmount"`
	TaxAmount         int64           `firestore:"taxAmount"`
	DiscountAmount    int64           `firestore:"discountAmount"`
	PromoCode         *string         `firestore:"promoCode,omitempty"`
	BillingCycle      string          `firestore:"billingCycle"`
	ShippingAddress   addressDocument `firestore:"shippingAddress"`
	BillingAddress    addressDocument `firestore:"billingAddress"`
	CreatedAt         time.Time       `firestore:"createdAt"`
	EstimatedDelivery time.Time       `firestore:"estimatedDelivery"`
	TrackingNumber    *string         `firestore:"trackingNumber,omitempty"`
	Metadata          map[string]any  `firestore:"metadata,omitempty"`
}

func fromDomainOrder(order domain.Order) orderDocument {
	return orderDocument{
		OrderNumber:       strings.TrimSpace(order.OrderNumber),
		CustomerID:        strings.TrimSpace(order.CustomerID),
		Status:            string(order.Status),
		TotalAmount:       order.TotalAmount,
		ShippingAmount:    order.ShippingAmount,
		TaxAmount:         order.TaxAmount,
		DiscountAmount:    order.DiscountAmount,
		PromoCode:         trimmedPtr(order.PromoCode),
		BillingCycle:      string(order.BillingCycle),
		ShippingAddress:   fromDomainAddress(order.ShippingAddress),
		BillingAddress:    fromDomainAddress(order.BillingAddress),
		CreatedAt:         order.CreatedAt.UTC(),
		EstimatedDelivery: order.EstimatedDelivery.UTC(),
		TrackingNumber:    trimmedPtr(order.TrackingNumber),
		Metadata:          order.Metadata,
	}
}

func (d orderDocument) toDomain(id string) domain.Order {
	return domain.Order{
		ID:                id,
		OrderNumber:       d.OrderNumber,
		CustomerID:        d.CustomerID,
		Status:            domain.OrderStatus(d.Status),
		TotalAmount:       d.TotalAmount,
		ShippingAmount:    d.ShippingAmount,
		TaxAmount:         d.TaxAmount,
		DiscountAmount:    d.DiscountAmount,
		PromoCode:         d.PromoCode,
		BillingCycle:      domain.BillingCycle(d.BillingCycle),
		ShippingAddress:   d.ShippingAddress.toDomain(),
		BillingAddress:    d.BillingAddress.toDomain(),
		CreatedAt:         d.CreatedAt,
		EstimatedDelivery: d.EstimatedDelivery,
		TrackingNumber:    d.TrackingNumber,
		Metadata:          d.Metadata,
	}
}

type orderItemDocument struct {
	ProductID   string `firestore:"productId"`
	ProductName string `firestore:"productName"`
	Quantity    int    `firestore:"quantity"`
	Price       int64  `firestore:"price"`
}

func encodeOrderListToken(createdAt time.Time, docID string) string {
	payload := fmt.Sprintf("%s|%s", createdAt.UTC().Format(time.RFC3339Nano), docID)
	return base64.RawURLEncoding.EncodeToString([]byte(payload))
}

func decodeOrderListToken(token string) (time.Time, string, error) {
	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return time.Time{}, "", err
	}
	parts := strings.SplitN(string(data), "|", 2)
	if len(parts) != 2 {
		return time.Time{}, "", errors.New("invalid token structure")
	}
	ts, err := time.Parse(time.RFC3339Nano, parts[0])
	if err != nil {
		return time.Time{}, "", err
	}
	return ts, parts[1], nil
}

var _ repositories.OrderRepository = (*OrderRepository)(nil)
