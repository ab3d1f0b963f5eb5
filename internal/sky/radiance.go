package sky

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const (
	cutoffAngle           = 1.6110731556870734
	steepness             = 1.5
	sunEnergy             = 1000.0
	rayleighZenithLength  = 8.4e3
	mieZenithLength       = 1.25e3
	sunAngularDiameterCos = 0.999956676946448443553574619906976478926848692873900859324
	threeOverSixteenPi    = 0.05968310365946075
	oneOverFourPi         = 0.07957747154594767
)

var (
	totalRayleigh = mgl64.Vec3{5.804542996261093e-6, 1.3562911419845635e-5, 3.0265902468824876e-5}
	mieConst      = mgl64.Vec3{1.8399918514433978e14, 2.7798023919660528e14, 4.0790479543861094e14}
	up            = mgl64.Vec3{0, 1, 0}
)

// Model is the per-sun state of the scattering model, computed once and
// evaluated for many view directions.
type Model struct {
	sunDir mgl64.Vec3
	sunE   float64
	fade   float64
	betaR  mgl64.Vec3
	betaM  mgl64.Vec3
	g      float64
}

// Model captures the sky's current parameters and sun position.
func (s *Sky) Model() *Model {
	p := s.Params()
	sun := s.SunPosition()
	return NewModel(p, mgl64.Vec3{float64(sun.X()), float64(sun.Y()), float64(sun.Z())})
}

func NewModel(p Params, sunPosition mgl64.Vec3) *Model {
	m := &Model{g: float64(p.MieDirectionalG)}
	m.sunDir = sunPosition.Normalize()
	m.sunE = sunIntensity(m.sunDir.Dot(up))
	m.fade = 1 - clamp(1-math.Exp(sunPosition.Y()/450000), 0, 1)
	rayleighCoefficient := float64(p.Rayleigh) - (1 - m.fade)
	m.betaR = totalRayleigh.Mul(rayleighCoefficient)
	m.betaM = totalMie(float64(p.Turbidity)).Mul(float64(p.MieCoefficient))
	return m
}

func sunIntensity(zenithAngleCos float64) float64 {
	zenithAngleCos = clamp(zenithAngleCos, -1, 1)
	return sunEnergy * math.Max(0, 1-math.Exp(-((cutoffAngle-math.Acos(zenithAngleCos))/steepness)))
}

func totalMie(turbidity float64) mgl64.Vec3 {
	c := (0.2 * turbidity) * 10e-18
	return mieConst.Mul(0.434 * c)
}

func rayleighPhase(cosTheta float64) float64 {
	return threeOverSixteenPi * (1 + cosTheta*cosTheta)
}

func hgPhase(cosTheta, g float64) float64 {
	g2 := g * g
	inverse := 1 / math.Pow(1-2*g*cosTheta+g2, 1.5)
	return oneOverFourPi * ((1 - g2) * inverse)
}

// Radiance returns the sky colour seen along direction.
func (m *Model) Radiance(direction mgl64.Vec3) mgl64.Vec3 {
	direction = direction.Normalize()

	zenithAngle := math.Acos(math.Max(0, up.Dot(direction)))
	inverse := 1 / (math.Cos(zenithAngle) + 0.15*math.Pow(93.885-(zenithAngle*180/math.Pi), -1.253))
	sR := rayleighZenithLength * inverse
	sM := mieZenithLength * inverse
	fex := expVec(m.betaR.Mul(sR).Add(m.betaM.Mul(sM)).Mul(-1))

	cosTheta := direction.Dot(m.sunDir)
	betaRTheta := m.betaR.Mul(rayleighPhase(cosTheta*0.5 + 0.5))
	betaMTheta := m.betaM.Mul(hgPhase(cosTheta, m.g))

	ratio := divVec(betaRTheta.Add(betaMTheta), m.betaR.Add(m.betaM)).Mul(m.sunE)
	lin := powVec(mulVec(ratio, oneMinus(fex)), 1.5)
	blend := clamp(math.Pow(1-up.Dot(m.sunDir), 5), 0, 1)
	lin = mulVec(lin, mixVec(mgl64.Vec3{1, 1, 1}, powVec(mulVec(ratio, fex), 0.5), blend))

	l0 := fex.Mul(0.1)
	sundisk := smoothstep(sunAngularDiameterCos, sunAngularDiameterCos+0.00002, cosTheta)
	l0 = l0.Add(fex.Mul(m.sunE * 19000 * sundisk))

	tex := lin.Add(l0).Mul(0.04).Add(mgl64.Vec3{0, 0.0003, 0.00075})
	return powVec(tex, 1/(1.2+1.2*m.fade))
}

// SunDirection is the normalized sun vector used by the model.
func (m *Model) SunDirection() mgl64.Vec3 {
	return m.sunDir
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

func smoothstep(edge0, edge1, x float64) float64 {
	t := clamp((x-edge0)/(edge1-edge0), 0, 1)
	return t * t * (3 - 2*t)
}

func expVec(v mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{math.Exp(v[0]), math.Exp(v[1]), math.Exp(v[2])}
}

func powVec(v mgl64.Vec3, e float64) mgl64.Vec3 {
	return mgl64.Vec3{math.Pow(v[0], e), math.Pow(v[1], e), math.Pow(v[2], e)}
}

func mulVec(a, b mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{a[0] * b[0], a[1] * b[1], a[2] * b[2]}
}

func divVec(a, b mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{a[0] / b[0], a[1] / b[1], a[2] / b[2]}
}

func oneMinus(v mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{1 - v[0], 1 - v[1], 1 - v[2]}
}

func mixVec(a, b mgl64.Vec3, t float64) mgl64.Vec3 {
	return a.Mul(1 - t).Add(b.Mul(t))
}
