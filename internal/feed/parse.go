package feed

import (
	"time"

	"github.com/bytedance/sonic"
	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"

	"main/internal/model"
	"main/internal/model/enum"
)

// l2Message is the level-2 channel envelope. Price and quantity fields
// arrive as decimal strings.
type l2Message struct {
	Channel string    `json:"channel"`
	Events  []l2Event `json:"events"`
}

type l2Event struct {
	Type      string     `json:"type"`
	ProductID string     `json:"product_id"`
	Updates   []l2Update `json:"updates"`
}

type l2Update struct {
	Side        string `json:"side"`
	PriceLevel  string `json:"price_level"`
	NewQuantity string `json:"new_quantity"`
}

// ParseResult carries the decoded events plus the count of dropped
// malformed updates.
type ParseResult struct {
	Events  []model.MarketEvent
	Dropped int
}

// ParseL2 decodes one raw level-2 message. A malformed numeric field
// drops only that update; an unrecognized message shape discards the
// whole batch with ErrParse.
func ParseL2(data []byte, symbol string, recv time.Time) (ParseResult, error) {
	var msg l2Message
	if err := sonic.Unmarshal(data, &msg); err != nil {
		return ParseResult{}, errors.Wrap(ErrParse, err.Error())
	}
	if msg.Channel != "l2_data" {
		return ParseResult{}, errors.Wrap(ErrParse, "unexpected channel: "+msg.Channel)
	}

	var out ParseResult
	for _, ev := range msg.Events {
		if ev.ProductID != symbol {
			continue
		}

		var kind model.MarketEventKind
		switch ev.Type {
		case "snapshot":
			kind = model.MarketEventSnapshot
		case "update":
			kind = model.MarketEventUpdate
		default:
			return ParseResult{}, errors.Wrap(ErrParse, "unexpected event type: "+ev.Type)
		}

		me := model.MarketEvent{
			Kind:     kind,
			Symbol:   ev.ProductID,
			Updates:  make([]model.BookUpdate, 0, len(ev.Updates)),
			RecvTime: recv,
		}
		for _, u := range ev.Updates {
			upd, ok := parseUpdate(u)
			if !ok {
				out.Dropped++
				continue
			}
			me.Updates = append(me.Updates, upd)
		}
		out.Events = append(out.Events, me)
	}
	return out, nil
}

func parseUpdate(u l2Update) (model.BookUpdate, bool) {
	var side enum.OrderSide
	switch u.Side {
	case "bid":
		side = enum.OrderSideBuy
	case "offer", "ask":
		side = enum.OrderSideSell
	default:
		return model.BookUpdate{}, false
	}

	price, err := decimal.NewFromString(u.PriceLevel)
	if err != nil {
		return model.BookUpdate{}, false
	}
	qty, err := decimal.NewFromString(u.NewQuantity)
	if err != nil {
		return model.BookUpdate{}, false
	}
	if price.IsNegative() || qty.IsNegative() {
		return model.BookUpdate{}, false
	}

	return model.BookUpdate{
		Side:     side,
		Price:    price.InexactFloat64(),
		Quantity: qty.InexactFloat64(),
	}, true
}
