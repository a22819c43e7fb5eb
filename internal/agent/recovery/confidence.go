package recovery

// IntentConfidence blends the confidence inputs. When the classifier ran its
// score carries the most weight.
func IntentConfidence(pattern, entity, classifier float64) float64 {
	if classifier > 0 {
		return pattern*0.3 + entity*0.3 + classifier*0.4
	}
	return pattern*0.6 + entity*0.4
}

// AgentSelectionConfidence discounts intent confidence by how clear the
// dependency structure was (1 for a clean plan).
func AgentSelectionConfidence(intent, clarity float64) float64 {
	return intent * clarity
}

// ResultConfidence rates a service result: executed lookups start at 1,
// empty or very large results and missing fields lower it.
func ResultConfidence(executed bool, rows int, expectedFieldsPresent bool) float64 {
	c := 0.5
	if executed {
		c = 1.0
	}
	switch {
	case rows == 0:
		c *= 0.6
	case rows > 10:
		c *= 0.9
	}
	if !expectedFieldsPresent {
		c *= 0.7
	}
	return min(c, 1.0)
}
