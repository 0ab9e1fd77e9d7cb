package planner

// Distribute spreads count slots evenly over a window of days and returns the 1-based day
// of every slot in ascending order. Slot i lands on day floor(i*days/count)+1, so the first
// slot is always on day 1 and no slot can fall past the last day.
func Distribute(count, days int) []int {
	if count <= 0 || days <= 0 {
		return nil
	}

	slots := make([]int, count)
	for i := range slots {
		slots[i] = i*days/count + 1
	}

	return slots
}
