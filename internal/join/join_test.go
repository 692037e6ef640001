package join

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/trajstitch/internal/tracer"
)

type memSource map[int]*mat.Dense

func (m memSource) LoadOne(i int) (*mat.Dense, error) {
	a, ok := m[i]
	if !ok {
		return nil, tracer.IOError(errors.New("no such tracer"))
	}
	return mat.DenseCopyOf(a), nil
}

// A phase: times 4.0, 4.5, 5.0; B phase: reduced grid 0, 0.01, ..., 0.05.
func fixture(t *testing.T) (memSource, *tracer.Set) {
	t.Helper()
	a := mat.NewDense(3, 2, []float64{
		4.0, 100,
		4.5, 110,
		5.0, 120,
	})

	set, err := tracer.NewSet(2, 6, 2, []string{"temp"})
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		b := mat.NewDense(6, 2, nil)
		for k := 0; k < 6; k++ {
			b.Set(k, 0, 0.01*float64(k))
			b.Set(k, 1, 200+float64(k)+1000*float64(i))
		}
		require.NoError(t, set.SetTracer(i, b))
	}
	return memSource{0: a, 1: a}, set
}

func TestJoinShiftsAndSkips(t *testing.T) {
	src, set := fixture(t)

	out, err := New(src).Join(set, 0, 2)
	require.NoError(t, err)

	r, c := out.Dims()
	require.Equal(t, 3+6-2, r)
	require.Equal(t, 2, c)

	times := mat.Col(nil, 0, out)
	require.Equal(t, []float64{4.0, 4.5, 5.0}, times[:3])
	want := []float64{5.02, 5.03, 5.04, 5.05}
	for k, w := range want {
		require.InDelta(t, w, times[3+k], 1e-12)
	}

	// values are carried through unchanged
	require.Equal(t, 120.0, out.At(2, 1))
	require.Equal(t, 202.0, out.At(3, 1))
	require.Equal(t, 205.0, out.At(6, 1))

	require.NoError(t, CheckMonotonic(out))
}

func TestJoinLengthForEverySkip(t *testing.T) {
	src, set := fixture(t)
	for skip := 1; skip <= 6; skip++ {
		out, err := New(src).Join(set, 1, skip)
		require.NoError(t, err, "skip %d", skip)
		r, _ := out.Dims()
		require.Equal(t, 3+6-skip, r, "skip %d", skip)
	}
}

func TestJoinZeroSkipDuplicatesSeam(t *testing.T) {
	src, set := fixture(t)

	_, err := New(src).Join(set, 0, 0)
	require.ErrorIs(t, err, tracer.ErrNonMonotonic)

	j := New(src)
	j.Verify = false
	out, err := j.Join(set, 0, 0)
	require.NoError(t, err)
	require.Equal(t, out.At(2, 0), out.At(3, 0))
}

func TestJoinDoesNotMutateInputs(t *testing.T) {
	src, set := fixture(t)
	before, err := set.Tracer(0)
	require.NoError(t, err)

	a := mat.DenseCopyOf(src[0])
	_, err = New(src).JoinWith(a, set, 0, 1)
	require.NoError(t, err)

	after, err := set.Tracer(0)
	require.NoError(t, err)
	require.True(t, mat.Equal(before, after))
	require.True(t, mat.Equal(src[0], a))
}

func TestJoinErrors(t *testing.T) {
	src, set := fixture(t)
	j := New(src)

	_, err := j.Join(set, 2, 1)
	require.ErrorIs(t, err, tracer.ErrOutOfRange)

	_, err = j.Join(set, 0, 7)
	require.ErrorIs(t, err, tracer.ErrOutOfRange)

	_, err = j.Join(set, 0, -1)
	require.ErrorIs(t, err, tracer.ErrOutOfRange)

	wide := mat.NewDense(2, 3, []float64{0, 1, 2, 1, 1, 2})
	_, err = j.JoinWith(wide, set, 0, 1)
	require.ErrorIs(t, err, tracer.ErrShapeMismatch)

	_, err = New(memSource{}).Join(set, 0, 1)
	require.ErrorIs(t, err, tracer.ErrIO)
}

func TestCheckMonotonic(t *testing.T) {
	ok := mat.NewDense(3, 1, []float64{0, 1, 2})
	require.NoError(t, CheckMonotonic(ok))

	flat := mat.NewDense(3, 1, []float64{0, 1, 1})
	require.ErrorIs(t, CheckMonotonic(flat), tracer.ErrNonMonotonic)

	back := mat.NewDense(3, 1, []float64{0, 2, 1})
	require.ErrorIs(t, CheckMonotonic(back), tracer.ErrNonMonotonic)
}
