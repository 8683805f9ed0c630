package math

// Mat3 is a 3x3 matrix in row-major order.
// Layout: [m0 m1 m2]
//
//	[m3 m4 m5]
//	[m6 m7 m8]
type Mat3 [9]float64

// Mat3Identity returns an identity matrix.
func Mat3Identity() Mat3 {
	return Mat3{
		1, 0, 0,
		0, 1, 0,
		0, 0, 1,
	}
}

// Add returns m + other element-wise.
func (m Mat3) Add(other Mat3) Mat3 {
	var out Mat3
	for i := range m {
		out[i] = m[i] + other[i]
	}
	return out
}

// Scale returns m * scalar element-wise.
func (m Mat3) Scale(s float64) Mat3 {
	var out Mat3
	for i := range m {
		out[i] = m[i] * s
	}
	return out
}

// Mul returns the matrix product m * other.
func (m Mat3) Mul(other Mat3) Mat3 {
	var out Mat3
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			sum := 0.0
			for k := 0; k < 3; k++ {
				sum += m[row*3+k] * other[k*3+col]
			}
			out[row*3+col] = sum
		}
	}
	return out
}

// Transpose returns the transposed matrix.
func (m Mat3) Transpose() Mat3 {
	return Mat3{
		m[0], m[3], m[6],
		m[1], m[4], m[7],
		m[2], m[5], m[8],
	}
}

// MulVec returns the matrix-vector product m * v.
func (m Mat3) MulVec(v Vec3) Vec3 {
	return Vec3{
		m[0]*v.X + m[1]*v.Y + m[2]*v.Z,
		m[3]*v.X + m[4]*v.Y + m[5]*v.Z,
		m[6]*v.X + m[7]*v.Y + m[8]*v.Z,
	}
}

// Diagonal returns the diagonal elements as a vector.
func (m Mat3) Diagonal() Vec3 {
	return Vec3{m[0], m[4], m[8]}
}

// Rotated returns R * m * R^T, the matrix re-expressed under rotation q.
// This is how an inertia tensor transforms into a rotated frame.
func (m Mat3) Rotated(q Quat) Mat3 {
	r := q.ToMat3()
	return r.Mul(m).Mul(r.Transpose())
}

// OuterProduct returns the outer product v * w^T.
func OuterProduct(v, w Vec3) Mat3 {
	return Mat3{
		v.X * w.X, v.X * w.Y, v.X * w.Z,
		v.Y * w.X, v.Y * w.Y, v.Y * w.Z,
		v.Z * w.X, v.Z * w.Y, v.Z * w.Z,
	}
}

// ParallelAxisTerm returns the inertia contribution of translating a point
// mass m by offset d from the reference frame origin:
// m * (|d|^2 * E - d * d^T).
func ParallelAxisTerm(mass float64, d Vec3) Mat3 {
	dd := d.Dot(d)
	e := Mat3Identity().Scale(dd)
	outer := OuterProduct(d, d)
	var out Mat3
	for i := range out {
		out[i] = mass * (e[i] - outer[i])
	}
	return out
}
