package geom

import "math"

// EllipseParams holds the semi-major axis, semi-minor axis and inverse
// flattening of a named reference ellipsoid.
type EllipseParams struct {
	A  float64
	B  float64
	RF float64
}

// Ellipsoid looks up ellipsoid parameters by name, mirroring
// gaiaEllipseParams("WGS84", &a, &b, &rf) in the original tool. Only
// WGS84 is needed by either pipeline.
func Ellipsoid(name string) (EllipseParams, bool) {
	switch name {
	case "WGS84":
		const a = 6378137.0
		const rf = 298.257223563
		b := a - a/rf
		return EllipseParams{A: a, B: b, RF: rf}, true
	default:
		return EllipseParams{}, false
	}
}

// GreatCircleLength computes the geodesic length in meters of the point
// sequence coords over the WGS84 ellipsoid, summing Vincenty distances
// between consecutive points. Property 4/9 of spec.md §8/§9 require the
// ellipsoid form, not a spherical approximation, to match the source's
// observable cost values.
func GreatCircleLength(coords []Point) float64 {
	if len(coords) < 2 {
		return 0
	}
	ep, _ := Ellipsoid("WGS84")
	var total float64
	for i := 1; i < len(coords); i++ {
		total += vincentyDistance(ep, coords[i-1], coords[i])
	}
	return total
}

// vincentyDistance computes the geodesic distance in meters between two
// WGS84 longitude/latitude points using Vincenty's inverse formula.
func vincentyDistance(ep EllipseParams, p1, p2 Point) float64 {
	if p1.X == p2.X && p1.Y == p2.Y {
		return 0
	}

	f := 1 / ep.RF
	L := deg2rad(p2.X - p1.X)
	U1 := math.Atan((1 - f) * math.Tan(deg2rad(p1.Y)))
	U2 := math.Atan((1 - f) * math.Tan(deg2rad(p2.Y)))
	sinU1, cosU1 := math.Sin(U1), math.Cos(U1)
	sinU2, cosU2 := math.Sin(U2), math.Cos(U2)

	lambda := L
	var sinLambda, cosLambda float64
	var sinSigma, cosSigma, sigma float64
	var sinAlpha, cosSqAlpha, cos2SigmaM float64

	for i := 0; i < 200; i++ {
		sinLambda, cosLambda = math.Sin(lambda), math.Cos(lambda)
		sinSigma = math.Sqrt(math.Pow(cosU2*sinLambda, 2) +
			math.Pow(cosU1*sinU2-sinU1*cosU2*cosLambda, 2))
		if sinSigma == 0 {
			return 0
		}
		cosSigma = sinU1*sinU2 + cosU1*cosU2*cosLambda
		sigma = math.Atan2(sinSigma, cosSigma)
		sinAlpha = cosU1 * cosU2 * sinLambda / sinSigma
		cosSqAlpha = 1 - sinAlpha*sinAlpha
		if cosSqAlpha != 0 {
			cos2SigmaM = cosSigma - 2*sinU1*sinU2/cosSqAlpha
		} else {
			cos2SigmaM = 0
		}
		C := f / 16 * cosSqAlpha * (4 + f*(4-3*cosSqAlpha))
		lambdaPrev := lambda
		lambda = L + (1-C)*f*sinAlpha*
			(sigma+C*sinSigma*(cos2SigmaM+C*cosSigma*(-1+2*cos2SigmaM*cos2SigmaM)))
		if math.Abs(lambda-lambdaPrev) < 1e-12 {
			break
		}
	}

	uSq := cosSqAlpha * (ep.A*ep.A - ep.B*ep.B) / (ep.B * ep.B)
	A := 1 + uSq/16384*(4096+uSq*(-768+uSq*(320-175*uSq)))
	B := uSq / 1024 * (256 + uSq*(-128+uSq*(74-47*uSq)))
	deltaSigma := B * sinSigma * (cos2SigmaM + B/4*(cosSigma*(-1+2*cos2SigmaM*cos2SigmaM)-
		B/6*cos2SigmaM*(-3+4*sinSigma*sinSigma)*(-3+4*cos2SigmaM*cos2SigmaM)))

	return ep.B * A * (sigma - deltaSigma)
}

func deg2rad(d float64) float64 {
	return d * math.Pi / 180
}
