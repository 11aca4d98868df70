package query

import "github.com/example/clothing-shop/internal/readmodel"

type OrderPage = readmodel.OrderPage
type TrackedOrder = readmodel.TrackedOrder
type InventoryEntry = readmodel.InventoryEntry
type VariantAvailability = readmodel.VariantAvailability
type Reconciliation = readmodel.Reconciliation
