package message

import (
	"popclient/internal/crypto"
)

// CountWitnessSignatures counts the distinct members of witnesses with a
// valid signature over id. Signers outside the set are ignored.
func CountWitnessSignatures(id crypto.Hash, sigs []WitnessSignature, witnesses []crypto.PublicKey) int {
	allowed := make(map[crypto.PublicKey]struct{}, len(witnesses))
	for _, w := range witnesses {
		allowed[w] = struct{}{}
	}
	counted := make(map[crypto.PublicKey]struct{}, len(sigs))
	for _, ws := range sigs {
		if _, ok := allowed[ws.Witness]; !ok {
			continue
		}
		if _, ok := counted[ws.Witness]; ok {
			continue
		}
		if ws.Valid(id) {
			counted[ws.Witness] = struct{}{}
		}
	}
	return len(counted)
}

// QuorumReached reports whether count of total witnesses is at least 60%.
// An event with no registered witnesses is trivially witnessed.
func QuorumReached(count, total int) bool {
	return count*5 >= total*3
}
