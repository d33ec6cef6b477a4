package common

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Invert4 computes the inverse of a column-major 4x4 matrix using the Laplace expansion by complementary minors.
// Unlike mgl32.Mat4.Inv, a singular input is reported instead of silently producing a zero matrix.
//
// Parameters:
//   - m: the matrix to invert
//
// Returns:
//   - mgl32.Mat4: the inverse, or the zero matrix if m is singular
//   - bool: false if m is singular
func Invert4(m mgl32.Mat4) (mgl32.Mat4, bool) {
	// 2x2 sub-determinants of the upper-left and lower-right quadrants.
	s0 := m[0]*m[5] - m[4]*m[1]
	s1 := m[0]*m[6] - m[4]*m[2]
	s2 := m[0]*m[7] - m[4]*m[3]
	s3 := m[1]*m[6] - m[5]*m[2]
	s4 := m[1]*m[7] - m[5]*m[3]
	s5 := m[2]*m[7] - m[6]*m[3]

	c5 := m[10]*m[15] - m[14]*m[11]
	c4 := m[9]*m[15] - m[13]*m[11]
	c3 := m[9]*m[14] - m[13]*m[10]
	c2 := m[8]*m[15] - m[12]*m[11]
	c1 := m[8]*m[14] - m[12]*m[10]
	c0 := m[8]*m[13] - m[12]*m[9]

	det := s0*c5 - s1*c4 + s2*c3 + s3*c2 - s4*c1 + s5*c0
	if det == 0 {
		return mgl32.Mat4{}, false
	}
	invDet := 1.0 / det

	return mgl32.Mat4{
		(m[5]*c5 - m[6]*c4 + m[7]*c3) * invDet,
		(-m[1]*c5 + m[2]*c4 - m[3]*c3) * invDet,
		(m[13]*s5 - m[14]*s4 + m[15]*s3) * invDet,
		(-m[9]*s5 + m[10]*s4 - m[11]*s3) * invDet,

		(-m[4]*c5 + m[6]*c2 - m[7]*c1) * invDet,
		(m[0]*c5 - m[2]*c2 + m[3]*c1) * invDet,
		(-m[12]*s5 + m[14]*s2 - m[15]*s1) * invDet,
		(m[8]*s5 - m[10]*s2 + m[11]*s1) * invDet,

		(m[4]*c4 - m[5]*c2 + m[7]*c0) * invDet,
		(-m[0]*c4 + m[1]*c2 - m[3]*c0) * invDet,
		(m[12]*s4 - m[13]*s2 + m[15]*s0) * invDet,
		(-m[8]*s4 + m[9]*s2 - m[11]*s0) * invDet,

		(-m[4]*c3 + m[5]*c1 - m[6]*c0) * invDet,
		(m[0]*c3 - m[1]*c1 + m[2]*c0) * invDet,
		(-m[12]*s3 + m[13]*s1 - m[14]*s0) * invDet,
		(m[8]*s3 - m[9]*s1 + m[10]*s0) * invDet,
	}, true
}

// LerpMat4 blends two matrices component-wise: (1-t)*a + t*b.
// This is not a rotation-preserving interpolation; large rotations between a and b introduce shear.
func LerpMat4(a, b mgl32.Mat4, t float32) mgl32.Mat4 {
	return a.Mul(1 - t).Add(b.Mul(t))
}

// Decompose splits an affine transform into translation, rotation and scale.
// A negative determinant is folded into the X scale so the rotation stays proper.
//
// Parameters:
//   - m: the affine transform to decompose
//
// Returns:
//   - mgl32.Vec3: the translation
//   - mgl32.Quat: the normalized rotation
//   - mgl32.Vec3: the per-axis scale
func Decompose(m mgl32.Mat4) (mgl32.Vec3, mgl32.Quat, mgl32.Vec3) {
	translation := m.Col(3).Vec3()

	x := m.Col(0).Vec3()
	y := m.Col(1).Vec3()
	z := m.Col(2).Vec3()
	scale := mgl32.Vec3{x.Len(), y.Len(), z.Len()}
	if x.Dot(y.Cross(z)) < 0 {
		scale[0] = -scale[0]
	}

	rot := mgl32.Ident4()
	for i, axis := range []mgl32.Vec3{x, y, z} {
		if scale[i] == 0 {
			continue
		}
		c := axis.Mul(1 / scale[i])
		rot[i*4+0], rot[i*4+1], rot[i*4+2] = c[0], c[1], c[2]
	}

	return translation, mgl32.Mat4ToQuat(rot).Normalize(), scale
}

// Compose builds T * R * S from its parts.
func Compose(translation mgl32.Vec3, rotation mgl32.Quat, scale mgl32.Vec3) mgl32.Mat4 {
	t := mgl32.Translate3D(translation[0], translation[1], translation[2])
	s := mgl32.Scale3D(scale[0], scale[1], scale[2])
	return t.Mul4(rotation.Mat4()).Mul4(s)
}

// AxisAngleOrQuat interprets a rotation request the way the host API passes it: a non-zero angle means
// (x, y, z) is a rotation axis, otherwise (x, y, z, w) is already a quaternion.
func AxisAngleOrQuat(rads, x, y, z, w float32) mgl32.Quat {
	if rads != 0 {
		axis := mgl32.Vec3{x, y, z}
		if axis.Len() == 0 {
			return mgl32.QuatIdent()
		}
		return mgl32.QuatRotate(rads, axis.Normalize())
	}
	q := mgl32.Quat{W: w, V: mgl32.Vec3{x, y, z}}
	if q.Len() == 0 {
		return mgl32.QuatIdent()
	}
	return q.Normalize()
}
