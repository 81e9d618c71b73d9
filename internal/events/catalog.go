// Package events defines the catalog change notifications published after successful mutations.
package events

import (
	"encoding/json"
	"time"
)

const (
	ProductCreatedSubject  = "catalog.product.created"
	ProductUpdatedSubject  = "catalog.product.updated"
	ProductDeletedSubject  = "catalog.product.deleted"
	CategoryCreatedSubject = "catalog.category.created"
	CategoryDeletedSubject = "catalog.category.deleted"

	// StreamSubjects captures every catalog subject.
	StreamSubjects = "catalog.>"
)

type ProductEvent struct {
	subject    string
	ProductID  string    `json:"product_id"`
	Name       string    `json:"name,omitempty"`
	Category   string    `json:"category,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

func NewProductCreated(id, name, category string, at time.Time) ProductEvent {
	return ProductEvent{subject: ProductCreatedSubject, ProductID: id, Name: name, Category: category, OccurredAt: at}
}

func NewProductUpdated(id, name, category string, at time.Time) ProductEvent {
	return ProductEvent{subject: ProductUpdatedSubject, ProductID: id, Name: name, Category: category, OccurredAt: at}
}

func NewProductDeleted(id string, at time.Time) ProductEvent {
	return ProductEvent{subject: ProductDeletedSubject, ProductID: id, OccurredAt: at}
}

func (e ProductEvent) Subject() string {
	return e.subject
}

func (e ProductEvent) Payload() ([]byte, error) {
	return json.Marshal(e)
}

type CategoryEvent struct {
	subject    string
	CategoryID string    `json:"category_id"`
	Name       string    `json:"name"`
	OccurredAt time.Time `json:"occurred_at"`
}

func NewCategoryCreated(id, name string, at time.Time) CategoryEvent {
	return CategoryEvent{subject: CategoryCreatedSubject, CategoryID: id, Name: name, OccurredAt: at}
}

func NewCategoryDeleted(id, name string, at time.Time) CategoryEvent {
	return CategoryEvent{subject: CategoryDeletedSubject, CategoryID: id, Name: name, OccurredAt: at}
}

func (e CategoryEvent) Subject() string {
	return e.subject
}

func (e CategoryEvent) Payload() ([]byte, error) {
	return json.Marshal(e)
}
