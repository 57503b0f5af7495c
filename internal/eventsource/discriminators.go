// Package eventsource implements the Event Source pipeline stage: it
// subscribes to venue program logs, decodes the Trade/Create/Migrate
// payloads, enriches them with the PDA account set resolved from the
// carrying instruction, and pushes the result onto a bounded ring queue
// for the Aggregator to drain.
package eventsource

// Event-log discriminators are 16 bytes: an 8-byte anchor prefix shared by
// every pump.fun event, followed by an 8-byte event-specific suffix.
var (
	tradeEventDiscriminator = [16]byte{
		228, 69, 165, 46, 81, 203, 154, 29,
		189, 219, 127, 211, 78, 230, 97, 238,
	}
	createEventDiscriminator = [16]byte{
		228, 69, 165, 46, 81, 203, 154, 29,
		27, 114, 169, 77, 222, 235, 99, 118,
	}
	migrateEventDiscriminator = [16]byte{
		228, 69, 165, 46, 81, 203, 154, 29,
		189, 233, 93, 185, 92, 148, 234, 148,
	}
)

// Instruction discriminators are 8-byte anchor sighashes.
var (
	buyIxDiscriminator = [8]byte{102, 6, 61, 18, 1, 218, 235, 234}
	sellIxDiscriminator = [8]byte{51, 230, 133, 164, 1, 127, 131, 173}
	createIxDiscriminator = [8]byte{24, 30, 200, 40, 5, 28, 7, 119}
	migrateIxDiscriminator = [8]byte{155, 234, 231, 146, 236, 158, 162, 30}
)

// Payload sizes below exclude the 16-byte discriminator prefix already
// stripped by the caller.
const (
	tradeEventPayloadSize   = 250
	createEventPayloadMin   = 257
	migrateEventPayloadSize = 160
)
