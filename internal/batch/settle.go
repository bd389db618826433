package batch

import (
	"context"
	"fmt"
	"log"

	"fulfillment-api/internal/model"
	"fulfillment-api/internal/stock"
)

// settle persists the outcome of one allocation and notifies the buyer.
func (p *Processor) settle(ctx context.Context, ps *pass, a Allocation) {
	o := a.Order
	if ps.settled[o.OrderID] {
		return
	}
	ps.settled[o.OrderID] = true

	d := p.newDelivery(ps, o)
	d.Delivered = len(a.Units)

	if d.Delivered == 0 {
		d.Outcome = model.OutcomeFailed
		d.Failure = model.FailureNoUnitsAvailable
		d.Reason = "no valid accounts available"
		p.finish(ctx, ps, d, model.OrderFailed)
		return
	}

	d.Outcome = model.OutcomeCompleted
	if d.Delivered < o.Quantity {
		d.Outcome = model.OutcomePartial
		d.Failure = model.FailurePartialSupply
		d.Reason = fmt.Sprintf("only %d of %d accounts were available", d.Delivered, o.Quantity)
	}
	d.Contents = stock.Contents(a.Units)
	ps.report.Delivered += d.Delivered

	d.Identities = p.ledger.RecordUnits(ctx, a.Units, o.UserID, o.OrderID, ps.product.Name)

	if p.artifacts != nil {
		path, err := p.artifacts.Write(o.OrderID, ps.product.Mode, a.Units)
		if err != nil {
			log.Printf("[Settlement] Failed to write delivery file for %s: %v", o.OrderID, err)
		}
		d.Artifact = path
	}

	p.setCooldown(ctx, ps.product, o)
	p.finish(ctx, ps, d, model.OrderCompleted)
}

func (p *Processor) newDelivery(ps *pass, o model.PendingOrder) model.Delivery {
	d := model.Delivery{
		OrderID:         o.OrderID,
		UserID:          o.UserID,
		Product:         o.Product,
		Requested:       o.Quantity,
		Channel:         o.Channel,
		PrecheckEnabled: ps.precheckEnabled,
		PrecheckInvalid: ps.report.Invalid,
	}
	if ps.product != nil {
		d.Product = ps.product.Name
	}
	if ps.precheckEnabled {
		d.PrecheckValid = ps.report.Loaded - ps.report.Invalid
	}
	return d
}

// finish records the order status and hands the delivery to the notifier.
// Neither step can undo what was already settled.
func (p *Processor) finish(ctx context.Context, ps *pass, d model.Delivery, status model.OrderStatus) {
	d.SettledAt = p.now().UTC()

	if err := p.store.UpdateOrderStatus(ctx, d.OrderID, status, d.Delivered, d.Reason); err != nil {
		log.Printf("[Settlement] Failed to update order %s: %v", d.OrderID, err)
	}

	if err := p.notifier.Notify(ctx, d.UserID, d); err != nil {
		log.Printf("[Settlement] Could not notify user %s for %s: %v", d.UserID, d.OrderID, err)
	}

	if status == model.OrderCompleted {
		log.Printf("[Settlement] Order %s completed - delivered %d/%d items to user %s",
			d.OrderID, d.Delivered, d.Requested, d.UserID)
	} else {
		log.Printf("[Settlement] Order %s failed: %s", d.OrderID, d.Reason)
	}
}

func (p *Processor) setCooldown(ctx context.Context, product *model.Product, o model.PendingOrder) {
	if o.CooldownExempt || product.CooldownSeconds <= 0 {
		return
	}
	now := p.now().UTC()
	if err := p.store.SetCooldown(ctx, o.UserID, product.Name, now); err != nil {
		log.Printf("[Settlement] Failed to set cooldown for %s/%s: %v", o.UserID, product.Name, err)
	}
	if p.cooldowns != nil {
		if err := p.cooldowns.Set(ctx, o.UserID, product.Name, now, product.Cooldown()); err != nil {
			log.Printf("[Settlement] Failed to cache cooldown for %s/%s: %v", o.UserID, product.Name, err)
		}
	}
}

// failRemaining fails every order of the pass that has not been settled yet.
func (p *Processor) failRemaining(ctx context.Context, ps *pass, pe *passError) {
	ps.report.Failure = pe.kind
	for _, o := range ps.orders {
		if ps.settled[o.OrderID] {
			continue
		}
		ps.settled[o.OrderID] = true

		d := p.newDelivery(ps, o)
		d.Outcome = model.OutcomeFailed
		d.Failure = pe.kind
		d.Reason = pe.reason
		p.finish(ctx, ps, d, model.OrderFailed)
	}
}
