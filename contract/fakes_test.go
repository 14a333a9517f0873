package contract

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/hyperledger/fabric-chaincode-go/pkg/cid"
	"github.com/hyperledger/fabric-chaincode-go/shim"
	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/hyperledger/fabric-protos-go/ledger/queryresult"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// fakeStub is an in-memory world state implementing just the slice of
// shim.ChaincodeStubInterface the contract touches. Composite keys follow the
// real stub's null-delimited layout so partial-key scans behave identically.
type fakeStub struct {
	shim.ChaincodeStubInterface
	state  map[string][]byte
	events []fakeEvent
	now    time.Time
}

type fakeEvent struct {
	name    string
	payload []byte
}

func newFakeStub(now time.Time) *fakeStub {
	return &fakeStub{state: map[string][]byte{}, now: now}
}

func (s *fakeStub) GetState(key string) ([]byte, error) {
	value, ok := s.state[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), value...), nil
}

func (s *fakeStub) PutState(key string, value []byte) error {
	s.state[key] = append([]byte(nil), value...)
	return nil
}

func (s *fakeStub) DelState(key string) error {
	delete(s.state, key)
	return nil
}

func (s *fakeStub) CreateCompositeKey(objectType string, attributes []string) (string, error) {
	key := "\x00" + objectType + "\x00"
	for _, attr := range attributes {
		key += attr + "\x00"
	}
	return key, nil
}

func (s *fakeStub) GetStateByPartialCompositeKey(objectType string, attributes []string) (shim.StateQueryIteratorInterface, error) {
	prefix, _ := s.CreateCompositeKey(objectType, attributes)
	keys := []string{}
	for key := range s.state {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return &fakeIterator{stub: s, keys: keys}, nil
}

func (s *fakeStub) GetTxTimestamp() (*timestamppb.Timestamp, error) {
	return timestamppb.New(s.now), nil
}

func (s *fakeStub) SetEvent(name string, payload []byte) error {
	s.events = append(s.events, fakeEvent{name: name, payload: payload})
	return nil
}

// lastEvent returns the most recent event with the given name, nil if none.
func (s *fakeStub) lastEvent(name string) []byte {
	for i := len(s.events) - 1; i >= 0; i-- {
		if s.events[i].name == name {
			return s.events[i].payload
		}
	}
	return nil
}

// snapshot deep-copies the world state for before/after comparisons.
func (s *fakeStub) snapshot() map[string][]byte {
	copied := make(map[string][]byte, len(s.state))
	for key, value := range s.state {
		copied[key] = append([]byte(nil), value...)
	}
	return copied
}

type fakeIterator struct {
	stub *fakeStub
	keys []string
	pos  int
}

func (it *fakeIterator) HasNext() bool {
	return it.pos < len(it.keys)
}

func (it *fakeIterator) Next() (*queryresult.KV, error) {
	if !it.HasNext() {
		return nil, errors.New("no more items in iterator")
	}
	key := it.keys[it.pos]
	it.pos++
	return &queryresult.KV{Key: key, Value: it.stub.state[key]}, nil
}

func (it *fakeIterator) Close() error {
	return nil
}

// fakeIdentity stands in for the client identity of the transaction invoker.
type fakeIdentity struct {
	cid.ClientIdentity
	id    string
	mspID string
}

func (c *fakeIdentity) GetID() (string, error) {
	return c.id, nil
}

func (c *fakeIdentity) GetMSPID() (string, error) {
	return c.mspID, nil
}

// fakeContext binds the fake stub and a switchable caller identity into a
// transaction context.
type fakeContext struct {
	contractapi.TransactionContextInterface
	stub     *fakeStub
	identity *fakeIdentity
}

func newFakeContext(now time.Time) *fakeContext {
	return &fakeContext{
		stub:     newFakeStub(now),
		identity: &fakeIdentity{mspID: "VaultMSP"},
	}
}

func (c *fakeContext) GetStub() shim.ChaincodeStubInterface {
	return c.stub
}

func (c *fakeContext) GetClientIdentity() cid.ClientIdentity {
	return c.identity
}

// as switches the transaction invoker for subsequent calls.
func (c *fakeContext) as(identity string) *fakeContext {
	c.identity.id = identity
	return c
}
