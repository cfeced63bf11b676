package broadcast

import (
	"fmt"

	"github.com/slpdexd/indexer/internal/classifier"
)

// Store is the persistence surface Fabric needs: the UTXO projection
// writer plus the prior-output lookup the tx-delta computation needs.
type Store interface {
	ProjectionStore
	OutputStore
}

// Fabric is the wiring point between a freshly-persisted classified
// batch and the streaming subscribers: it mutates the UTXO projections
// and then fans the three delta shapes out over Bus. Grounded on
// broadcast_actor.rs's BroadcastActor, which plays the same role of
// sequencing UpdateDbUtxosActor ahead of the three Broadcast*Actors.
type Fabric struct {
	Store Store
	Bus   *Bus
}

// NewFabric wires a store and a fresh subscription bus together.
func NewFabric(store Store) *Fabric {
	return &Fabric{Store: store, Bus: NewBus()}
}

// Publish projects results into the UTXO tables and pushes the resulting
// address/token deltas to whoever is subscribed. now is the Unix
// timestamp stamped on the emitted TxDelta rows.
func (f *Fabric) Publish(results []classifier.Result, now int64) error {
	if len(results) == 0 {
		return nil
	}
	relevant := f.Bus.Relevant()

	if err := ProjectUtxos(f.Store, results, relevant); err != nil {
		return fmt.Errorf("publish: %w", err)
	}

	f.Bus.PublishAddressUtxoDeltas(AddressUtxoDeltas(results, relevant))
	f.Bus.PublishTradeOfferUtxoDeltas(TradeOfferUtxoDeltas(results))

	txDeltas, err := AddressTxDeltas(f.Store, results, relevant, now)
	if err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	f.Bus.PublishAddressTxDeltas(txDeltas)
	return nil
}
