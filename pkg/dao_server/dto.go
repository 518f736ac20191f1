package dao_server

import "github.com/mattiabonardi/endor-dao-go/pkg/dao"

type ExistsDTO struct {
	Filter dao.Filter `json:"filter"`
	Select dao.Fields `json:"select,omitempty"`
}

type FilterDTO struct {
	Filter dao.Filter `json:"filter"`
}

type InsertDTO struct {
	Document dao.Document `json:"document" binding:"required"`
}

type InsertManyDTO struct {
	Documents []dao.Document `json:"documents"`
}

type UpdateDTO struct {
	Filter dao.Filter   `json:"filter"`
	Update dao.Document `json:"update" binding:"required"`
}

type AggregateDTO struct {
	Pipeline []dao.Stage `json:"pipeline" binding:"required"`
}

type OutcomeDTO struct {
	Outcome string `json:"outcome"`
}
