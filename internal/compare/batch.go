package compare

import (
	"vlmeval/pkg/types"
)

// BatchInput is what a batch report is computed from.
type BatchInput struct {
	Batch  types.EvaluationBatch
	Models []types.ModelIdentifier
	// Labels and Truth enable accuracy; Truth maps image name to "positive" or "negative".
	Labels *types.ClassificationLabels
	Truth  map[string]string
}

// Batch builds the agreement matrix and per-model performance for a batch.
func Batch(in BatchInput) types.BatchReport {
	images := in.Batch.Images()
	rep := types.BatchReport{
		Models:          append([]string(nil), in.Models...),
		Images:          len(images),
		AgreementMatrix: make(map[string]map[string]int, len(in.Models)),
		Performance:     make(map[string]types.ModelPerformance, len(in.Models)),
	}

	for _, mi := range in.Models {
		row := make(map[string]int, len(in.Models))
		for _, mj := range in.Models {
			row[mj] = agreement(in.Batch, images, mi, mj)
		}
		rep.AgreementMatrix[mi] = row
		rep.Performance[mi] = performance(in, images, mi)
	}
	return rep
}

// agreement counts images where both models succeeded with equal answers.
// On the diagonal this is the model's success count.
func agreement(b types.EvaluationBatch, images []string, mi, mj types.ModelIdentifier) int {
	n := 0
	for _, img := range images {
		ri, ok := b.Lookup(img, mi)
		if !ok || !ri.OK() {
			continue
		}
		if mi == mj {
			n++
			continue
		}
		rj, ok := b.Lookup(img, mj)
		if ok && rj.OK() && SameAnswer(ri.Success.Entity, rj.Success.Entity) {
			n++
		}
	}
	return n
}

func performance(in BatchInput, images []string, model types.ModelIdentifier) types.ModelPerformance {
	p := types.ModelPerformance{Model: model, Total: len(images)}
	var latency, throughput float64
	var rated, correct, judged int
	for _, img := range images {
		r, found := in.Batch.Lookup(img, model)
		truth, hasTruth := in.Truth[img]
		if hasTruth && in.Labels != nil {
			judged++
		}
		if !found || !r.OK() {
			p.Failed++
			continue
		}
		p.Successful++
		latency += r.Success.ProcessingTimeSeconds
		if r.Success.TokensPerSecond != nil {
			throughput += *r.Success.TokensPerSecond
			rated++
		}
		if hasTruth && in.Labels != nil && Correct(r.Success.Entity, truth, *in.Labels) {
			correct++
		}
	}
	if p.Total > 0 {
		p.SuccessRate = round(float64(p.Successful)/float64(p.Total), 3)
	}
	p.TotalProcessingTime = round(latency, 3)
	if p.Successful > 0 {
		p.AverageLatency = round(latency/float64(p.Successful), 3)
	}
	if rated > 0 {
		p.AverageThroughput = round(throughput/float64(rated), 2)
	}
	if judged > 0 {
		acc := round(float64(correct)/float64(judged), 3)
		p.Accuracy = &acc
		p.Correct = correct
		p.Judged = judged
	}
	return p
}
