package core

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// Source type labels used by the cash-flow workbooks.
const (
	TypeOpening  = "00_Saldos"
	TypeIncome   = "01_Ingreso"
	TypeExpense  = "02_Egreso"
	TypeTransfer = "03_Movimiento interno"
)

const (
	DefaultGroup       = "-"
	DefaultCategory    = "Sin categoría"
	DefaultSubcategory = "-"
)

// AllEntities is the entity filter value that consolidates every entity.
const AllEntities = "all"

// Consolidated reports whether an entity filter value covers every entity.
func Consolidated(entity string) bool {
	return entity == "" || entity == AllEntities
}

var (
	ErrEmptyType   = errors.New("empty movement type")
	ErrEmptyPeriod = errors.New("empty period")
)

type (
	// Movement is one normalized cash-flow row.
	Movement struct {
		ID          string          `json:"id"`
		Type        string          `json:"type"`
		Entity      string          `json:"entity"`
		Group       string          `json:"group"`
		Category    string          `json:"category"`
		Subcategory string          `json:"subcategory"`
		Detail      string          `json:"detail"`
		Code        string          `json:"code"`
		Amount      decimal.Decimal `json:"amount"`
		Period      Period          `json:"period"`
		RawPeriod   string          `json:"raw_period"`
	}

	// TypeSet names the movement types that carry aggregation meaning.
	TypeSet struct {
		Opening  string `json:"opening"`
		Income   string `json:"income"`
		Expense  string `json:"expense"`
		Transfer string `json:"transfer"`
	}

	// Placeholders replace empty dimension labels.
	Placeholders struct {
		Group       string `json:"group"`
		Category    string `json:"category"`
		Subcategory string `json:"subcategory"`
	}
)

// DefaultTypes returns the workbook type labels.
func DefaultTypes() TypeSet {
	return TypeSet{
		Opening:  TypeOpening,
		Income:   TypeIncome,
		Expense:  TypeExpense,
		Transfer: TypeTransfer,
	}
}

// DefaultPlaceholders returns the workbook placeholders.
func DefaultPlaceholders() Placeholders {
	return Placeholders{
		Group:       DefaultGroup,
		Category:    DefaultCategory,
		Subcategory: DefaultSubcategory,
	}
}

// PeriodKey returns the sortable key of the movement's period.
func (m Movement) PeriodKey() PeriodKey {
	return m.Period.Key()
}

// Validate checks the fields a movement cannot exist without.
func (m Movement) Validate() error {
	if strings.TrimSpace(m.Type) == "" {
		return ErrEmptyType
	}
	if !m.Period.Key().Valid() {
		return ErrEmptyPeriod
	}
	return nil
}

// Apply fills empty dimension labels with the placeholders.
func (p Placeholders) Apply(m Movement) Movement {
	m.Group = orDefault(m.Group, p.Group)
	m.Category = orDefault(m.Category, p.Category)
	m.Subcategory = orDefault(m.Subcategory, p.Subcategory)
	return m
}

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s == "" {
		return def
	}
	return s
}
