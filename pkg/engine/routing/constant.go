package routing

import "math"

var infBound = math.Inf(1)
