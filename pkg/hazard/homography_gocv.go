//go:build cgo
// +build cgo

package hazard

import (
	"gocv.io/x/gocv"
)

// minCorrespondences is the minimum number of accepted feature matches
// required to fit a homography; below this the estimate is considered too
// unreliable and computeHomography reports ok=false so the tracker falls
// back per spec section 4.2.
const minCorrespondences = 10

// loweRatio is the distance-ratio threshold for Lowe's ratio test used to
// filter ambiguous ORB matches before fitting the homography.
const loweRatio = 0.75

func init() {
	computeHomographyFunc = computeHomography
}

// computeHomography estimates a planar homography from refFrame to curFrame
// using ORB features and a brute-force Hamming matcher, generalizing the
// teacher's existing gocv dependency into a second concern (spec section
// 4.2's "feature-based" dynamic-mode projection).
func computeHomography(refFrame []byte, refW, refH int, curFrame []byte, curW, curH int) (Matrix3x3, bool) {
	if refW <= 0 || refH <= 0 || curW <= 0 || curH <= 0 {
		return identityMatrix, false
	}

	refMat, err := gocv.NewMatFromBytes(refH, refW, gocv.MatTypeCV8UC3, refFrame)
	if err != nil {
		return identityMatrix, false
	}
	defer refMat.Close()

	curMat, err := gocv.NewMatFromBytes(curH, curW, gocv.MatTypeCV8UC3, curFrame)
	if err != nil {
		return identityMatrix, false
	}
	defer curMat.Close()

	orb := gocv.NewORB()
	defer orb.Close()

	refKP, refDesc := orb.DetectAndCompute(refMat, gocv.NewMat())
	defer refDesc.Close()
	curKP, curDesc := orb.DetectAndCompute(curMat, gocv.NewMat())
	defer curDesc.Close()

	if len(refKP) < minCorrespondences || len(curKP) < minCorrespondences {
		return identityMatrix, false
	}
	if refDesc.Empty() || curDesc.Empty() {
		return identityMatrix, false
	}

	matcher := gocv.NewBFMatcher()
	defer matcher.Close()

	matches := matcher.KnnMatch(refDesc, curDesc, 2)

	var srcPts, dstPts []gocv.Point2f
	for _, pair := range matches {
		if len(pair) < 2 {
			continue
		}
		if pair[0].Distance >= loweRatio*pair[1].Distance {
			continue
		}
		q := refKP[pair[0].QueryIdx]
		tr := curKP[pair[0].TrainIdx]
		srcPts = append(srcPts, gocv.Point2f{X: float32(q.X), Y: float32(q.Y)})
		dstPts = append(dstPts, gocv.Point2f{X: float32(tr.X), Y: float32(tr.Y)})
	}

	if len(srcPts) < minCorrespondences {
		return identityMatrix, false
	}

	srcVec := gocv.NewPoint2fVectorFromPoints(srcPts)
	defer srcVec.Close()
	dstVec := gocv.NewPoint2fVectorFromPoints(dstPts)
	defer dstVec.Close()

	mask := gocv.NewMat()
	defer mask.Close()

	h := gocv.FindHomography(srcVec, dstVec, gocv.HomographyMethodRANSAC, 3.0, &mask, 2000, 0.995)
	defer h.Close()

	if h.Empty() || h.Rows() != 3 || h.Cols() != 3 {
		return identityMatrix, false
	}

	var m Matrix3x3
	idx := 0
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			m[idx] = h.GetDoubleAt(r, c)
			idx++
		}
	}
	return m, true
}
