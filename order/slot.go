package order

import "sort"

// SplitByTimeSlot partitions the input into one market input per time slot.
// The relative order of the orders within a slot is preserved and the slots
// are returned sorted by their identifier.
func SplitByTimeSlot(input *MarketInput) []*MarketInput {
	slots := make(map[string]*MarketInput)
	for i := range input.Orders {
		o := input.Orders[i].Copy()

		slot, ok := slots[o.TimeSlot]
		if !ok {
			slot = &MarketInput{}
			slots[o.TimeSlot] = slot
		}
		slot.Orders = append(slot.Orders, o)
	}

	keys := make([]string, 0, len(slots))
	for k := range slots {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	inputs := make([]*MarketInput, 0, len(keys))
	for _, k := range keys {
		inputs = append(inputs, slots[k])
	}

	log.Debugf("Split %d orders into %d time slots", len(input.Orders),
		len(inputs))

	return inputs
}

// TimeSlot returns the time slot shared by the orders of the input. If the
// input is empty or spans multiple slots, an empty string and false are
// returned.
func (m *MarketInput) TimeSlot() (string, bool) {
	if len(m.Orders) == 0 {
		return "", false
	}

	slot := m.Orders[0].TimeSlot
	for i := range m.Orders[1:] {
		if m.Orders[i+1].TimeSlot != slot {
			return "", false
		}
	}

	return slot, true
}
