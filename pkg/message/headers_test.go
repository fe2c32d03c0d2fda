package message

import (
	"errors"
	"fmt"
	"sync"
	"testing"
)

func TestHeadersPutGet(t *testing.T) {
	var hs Headers

	if hs.Len() != 0 || hs.Cap() != 0 {
		t.Fatalf("zero Headers: Len=%d Cap=%d", hs.Len(), hs.Cap())
	}

	if err := hs.Put(5, hdr("a")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if hs.Cap() != DefaultHeaderCapacity {
		t.Errorf("Cap() = %d; want %d", hs.Cap(), DefaultHeaderCapacity)
	}

	got, err := hs.Get(5)
	if err != nil || got.(*testHeader).val != "a" {
		t.Errorf("Get(5) = %v, %v", got, err)
	}

	got, err = hs.Get(6)
	if err != nil || got != nil {
		t.Errorf("Get(6) = %v, %v; want nil, nil", got, err)
	}
}

func TestHeadersOverwrite(t *testing.T) {
	var hs Headers
	_ = hs.Put(1, hdr("one"))
	_ = hs.Put(2, hdr("two"))
	_ = hs.Put(1, hdr("uno"))

	if hs.Len() != 2 {
		t.Errorf("Len() = %d; want 2", hs.Len())
	}
	got, _ := hs.Get(1)
	if got.(*testHeader).val != "uno" {
		t.Errorf("Get(1) = %v; want uno", got)
	}

	// Overwrite keeps the original position
	var ids []int16
	hs.Each(func(id int16, _ Header) bool {
		ids = append(ids, id)
		return true
	})
	if fmt.Sprint(ids) != "[1 2]" {
		t.Errorf("order = %v; want [1 2]", ids)
	}
}

func TestHeadersInvalidID(t *testing.T) {
	var hs Headers
	_ = hs.Put(3, hdr("x"))

	for _, id := range []int16{0, -1, -3, -32768} {
		if err := hs.Put(id, hdr("bad")); !errors.Is(err, ErrInvalidHeaderID) {
			t.Errorf("Put(%d) error = %v; want ErrInvalidHeaderID", id, err)
		}
		if _, err := hs.Get(id); !errors.Is(err, ErrInvalidHeaderID) {
			t.Errorf("Get(%d) error = %v; want ErrInvalidHeaderID", id, err)
		}
		if _, err := hs.Remove(id); !errors.Is(err, ErrInvalidHeaderID) {
			t.Errorf("Remove(%d) error = %v; want ErrInvalidHeaderID", id, err)
		}
		if _, err := hs.GetAny(3, id); !errors.Is(err, ErrInvalidHeaderID) {
			t.Errorf("GetAny(3, %d) error = %v; want ErrInvalidHeaderID", id, err)
		}
	}

	if hs.Len() != 1 {
		t.Errorf("invalid ids mutated the collection: Len() = %d", hs.Len())
	}
	if err := hs.Put(4, nil); !errors.Is(err, ErrNilHeader) {
		t.Errorf("Put(nil) error = %v; want ErrNilHeader", err)
	}
}

func TestHeadersGrow(t *testing.T) {
	var hs Headers
	for i := int16(1); i <= 7; i++ {
		if err := hs.Put(i, hdr(fmt.Sprint(i))); err != nil {
			t.Fatal(err)
		}
	}

	if hs.Len() != 7 {
		t.Errorf("Len() = %d; want 7", hs.Len())
	}
	if hs.Cap() != 9 {
		t.Errorf("Cap() = %d; want 9 (3 + 3 + 3)", hs.Cap())
	}
	for i := int16(1); i <= 7; i++ {
		h, _ := hs.Get(i)
		if h == nil || h.(*testHeader).val != fmt.Sprint(i) {
			t.Errorf("Get(%d) = %v", i, h)
		}
	}
}

func TestHeadersGetAny(t *testing.T) {
	var hs Headers
	_ = hs.Put(10, hdr("ten"))
	_ = hs.Put(20, hdr("twenty"))

	// Collection order wins over argument order
	h, err := hs.GetAny(20, 10)
	if err != nil || h.(*testHeader).val != "ten" {
		t.Errorf("GetAny(20, 10) = %v, %v; want ten", h, err)
	}

	h, err = hs.GetAny(30, 40)
	if err != nil || h != nil {
		t.Errorf("GetAny(30, 40) = %v, %v; want nil", h, err)
	}
}

func TestHeadersRemove(t *testing.T) {
	var hs Headers
	for i := int16(1); i <= 4; i++ {
		_ = hs.Put(i, hdr(fmt.Sprint(i)))
	}

	ok, err := hs.Remove(2)
	if err != nil || !ok {
		t.Fatalf("Remove(2) = %v, %v", ok, err)
	}
	ok, _ = hs.Remove(2)
	if ok {
		t.Error("second Remove(2) = true")
	}

	var ids []int16
	hs.Each(func(id int16, _ Header) bool {
		ids = append(ids, id)
		return true
	})
	if fmt.Sprint(ids) != "[1 3 4]" {
		t.Errorf("after Remove(2) ids = %v; want [1 3 4]", ids)
	}

	// The freed slot is reused
	_ = hs.Put(9, hdr("9"))
	if hs.Cap() != 6 {
		t.Errorf("Cap() = %d; want 6", hs.Cap())
	}
}

func TestHeadersMapAndString(t *testing.T) {
	var hs Headers
	_ = hs.Put(1, hdr("a"))
	_ = hs.Put(2, hdr("b"))

	m := hs.Map()
	if len(m) != 2 || m[1].(*testHeader).val != "a" {
		t.Errorf("Map() = %v", m)
	}
	if got := hs.String(); got != "1: a, 2: b" {
		t.Errorf("String() = %q", got)
	}
}

func TestHeadersWireSize(t *testing.T) {
	var hs Headers
	_ = hs.Put(1, hdr("X"))
	_ = hs.Put(2, hdr("hello"))

	// (2 + 2 + 2) + (2 + 2 + 6)
	if got := hs.WireSize(); got != 16 {
		t.Errorf("WireSize() = %d; want 16", got)
	}
}

func TestHeadersConcurrentPutAndRead(t *testing.T) {
	var hs Headers
	var wg sync.WaitGroup
	stop := make(chan struct{})

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				hs.Each(func(id int16, h Header) bool {
					if id <= 0 || h == nil {
						t.Errorf("torn entry: id=%d h=%v", id, h)
					}
					return true
				})
				_, _ = hs.Get(50)
				_ = hs.WireSize()
			}
		}()
	}

	var writers sync.WaitGroup
	for w := 0; w < 4; w++ {
		writers.Add(1)
		go func(base int16) {
			defer writers.Done()
			for i := int16(1); i <= 25; i++ {
				_ = hs.Put(base*25+i, hdr("v"))
			}
		}(int16(w))
	}
	writers.Wait()
	close(stop)
	wg.Wait()

	if hs.Len() != 100 {
		t.Errorf("Len() = %d; want 100", hs.Len())
	}
}
