// Package main evaluates multi-view skeletal reconstruction against a
// benchmark dataset, reporting a percentage-of-correct-parts score.
package main

import (
	"context"
	"flag"

	"github.com/edaniels/golog"

	"github.com/HYPER-THEORY/MMMocap/dataset"
	"github.com/HYPER-THEORY/MMMocap/pose"
	"github.com/HYPER-THEORY/MMMocap/reconstruct"
)

var logger = golog.NewDevelopmentLogger("mocap-eval")

// clavicle and hip attachments are not annotated reliably enough in the
// benchmark ground truth to score
var excludedBones = map[pose.Bone]bool{
	{A: 0, B: 1}:  true,
	{A: 1, B: 2}:  true,
	{A: 1, B: 5}:  true,
	{A: 8, B: 9}:  true,
	{A: 8, B: 12}: true,
}

func main() {
	datasetDir := flag.String("dataset", "", "dataset directory with calibration.json and detection/")
	gtPath := flag.String("gt", "", "shelf style ground truth file")
	gtOffset := flag.Int("gt-offset", 300, "ground truth frame index of the first detection frame")
	startFrame := flag.Int("start", 0, "first detection frame to evaluate")
	frameCount := flag.Int("frames", -1, "number of frames to evaluate, -1 for all")
	maxEpipolarDistance := flag.Float64("max-epipolar-distance", 0.1, "ray distance at which an epipolar score reaches zero")
	boneMargin := flag.Float64("bone-margin", 0.1, "slack added to calibrated bone length limits")
	flag.Parse()

	if *datasetDir == "" || *gtPath == "" {
		logger.Fatal("both -dataset and -gt are required")
	}

	frames, err := dataset.LoadT4DA(*datasetDir, logger)
	if err != nil {
		logger.Fatal(err)
	}
	logger.Infow("loaded dataset", "dir", *datasetDir, "frames", len(frames))

	groundTruth, err := dataset.LoadShelfGroundTruth(*gtPath)
	if err != nil {
		logger.Fatal(err)
	}
	dataset.ShelfToBody25(groundTruth)

	skel := pose.BODY25()
	rec, err := reconstruct.NewReconstructor(skel, pose.BODY25JointOrders(), logger)
	if err != nil {
		logger.Fatal(err)
	}
	dataset.CalibrateMaxBoneLengths(rec, groundTruth, skeletonBones(skel), *boneMargin)

	var scoredBones []pose.Bone
	for _, bone := range pose.BODY25EvaluationBones() {
		if !excludedBones[bone] {
			scoredBones = append(scoredBones, bone)
		}
	}

	end := len(frames)
	if *frameCount >= 0 && *startFrame+*frameCount < end {
		end = *startFrame + *frameCount
	}

	ctx := context.Background()
	var total dataset.PCPResult
	for frame := *startFrame; frame < end; frame++ {
		gtFrame := frame + *gtOffset
		if gtFrame >= len(groundTruth) {
			logger.Infow("ran out of ground truth", "frame", frame)
			break
		}

		mv := frames[frame]
		mv.ComputeEpipolar(*maxEpipolarDistance)
		people, err := rec.Compute(ctx, mv)
		if err != nil {
			logger.Fatal(err)
		}

		result := dataset.PCP(people, groundTruth[gtFrame], scoredBones)
		total.Add(result)
		logger.Infow("evaluated frame",
			"frame", frame,
			"people", len(people),
			"correct", result.Correct,
			"total", result.Total,
		)
	}

	logger.Infow("finished", "correct", total.Correct, "total", total.Total, "pcp", total.Ratio())
}

func skeletonBones(skel *pose.Skeleton) []pose.Bone {
	var bones []pose.Bone
	for jointType := 0; jointType < skel.NumJointTypes(); jointType++ {
		if parent := skel.Parent(jointType); parent != pose.NoParent {
			bones = append(bones, pose.Bone{A: parent, B: jointType})
		}
	}
	return bones
}
