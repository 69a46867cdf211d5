/*
Copyright © 2018 the GTSMap authors.
This file is part of GTSMap.

GTSMap is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

GTSMap is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with GTSMap.  If not, see <http://www.gnu.org/licenses/>.
*/

package gtsmap

import (
	"fmt"
	"math"
	"os"
	"regexp"

	"github.com/Knetic/govaluate"
	"github.com/ctessum/sparse"
)

// Outputter evaluates derived output variables over mapped data and writes
// the combined result to a netcdf file.
//
// fileName contains the path where the output will be saved.
//
// outputVariables maps the names of requested derived variables to
// expressions defining how they are calculated. Expressions can use the
// mapped variable names, other derived variable names, and functions.
//
// modelVariables is automatically generated and holds the mapped variables
// the requested expressions depend on.
//
// Functions are defined in the outputFunctions variable.
type Outputter struct {
	fileName        string
	outputVariables map[string]string
	modelVariables  []string
	outputFunctions map[string]govaluate.ExpressionFunction
}

// NewOutputter initializes a new Outputter holder and adds a set of default
// output functions: 'exp(x)', 'log(x)', 'sqrt(x)', 'abs(x)', 'min(x, y)',
// and 'max(x, y)'. Functions given in outputFunctions are added to the
// defaults, overriding them on name collisions.
func NewOutputter(fileName string, outputVariables map[string]string, outputFunctions map[string]govaluate.ExpressionFunction) (*Outputter, error) {
	scalarFunc := func(name string, f func(float64) float64) govaluate.ExpressionFunction {
		return func(arg ...interface{}) (interface{}, error) {
			if len(arg) != 1 {
				return nil, fmt.Errorf("gtsmap: got %d arguments for function '%s', but needs 1", len(arg), name)
			}
			return f(arg[0].(float64)), nil
		}
	}
	pairFunc := func(name string, f func(float64, float64) float64) govaluate.ExpressionFunction {
		return func(arg ...interface{}) (interface{}, error) {
			if len(arg) != 2 {
				return nil, fmt.Errorf("gtsmap: got %d arguments for function '%s', but needs 2", len(arg), name)
			}
			return f(arg[0].(float64), arg[1].(float64)), nil
		}
	}
	defaultOutputFuncs := map[string]govaluate.ExpressionFunction{
		"exp":  scalarFunc("exp", math.Exp),
		"log":  scalarFunc("log", math.Log),
		"sqrt": scalarFunc("sqrt", math.Sqrt),
		"abs":  scalarFunc("abs", math.Abs),
		"min":  pairFunc("min", math.Min),
		"max":  pairFunc("max", math.Max),
	}
	for key, val := range outputFunctions {
		defaultOutputFuncs[key] = val
	}
	o := Outputter{
		fileName:        fileName,
		outputVariables: make(map[string]string, len(outputVariables)),
		outputFunctions: defaultOutputFuncs,
	}
	for key, val := range outputVariables {
		o.outputVariables[key] = val
	}
	err := o.checkForDerivatives()
	return &o, err
}

// removeDuplicates removes all duplicated strings from a slice, returning a
// slice that contains only unique strings.
func removeDuplicates(s []string) []string {
	result := make([]string, 0, len(s))
	seen := make(map[string]string)
	for _, val := range s {
		if _, ok := seen[val]; !ok {
			result = append(result, val)
			seen[val] = val
		}
	}
	return result
}

// checkForDerivatives replaces references to derived output variables
// within other output expressions by the expressions that define them, and
// collects the unique mapped variables the expressions depend on.
func (o *Outputter) checkForDerivatives() error {
	for pass := 0; ; pass++ {
		if pass > 4*len(o.outputVariables) {
			return fmt.Errorf("gtsmap: output variable definitions appear to be circular")
		}
		changed := false
		for key, val := range o.outputVariables {
			expression, err := govaluate.NewEvaluableExpressionWithFunctions(val, o.outputFunctions)
			if err != nil {
				return fmt.Errorf("gtsmap: output variable %s: %v", key, err)
			}
			cur := val
			for _, v := range removeDuplicates(expression.Vars()) {
				def, ok := o.outputVariables[v]
				if !ok || v == key || def == v {
					continue
				}
				// Whole-word replacement, so a variable named 'Ne'
				// does not match inside 'Ne0'.
				re := regexp.MustCompile(`\b` + regexp.QuoteMeta(v) + `\b`)
				cur = re.ReplaceAllString(cur, "("+def+")")
				changed = true
			}
			o.outputVariables[key] = cur
		}
		if !changed {
			break
		}
	}
	o.modelVariables = make([]string, 0, len(o.outputVariables))
	for key, val := range o.outputVariables {
		expression, err := govaluate.NewEvaluableExpressionWithFunctions(val, o.outputFunctions)
		if err != nil {
			return fmt.Errorf("gtsmap: output variable %s: %v", key, err)
		}
		o.modelVariables = append(o.modelVariables, expression.Vars()...)
	}
	o.modelVariables = removeDuplicates(o.modelVariables)
	return nil
}

// CheckOutputVars ensures that the mapped variables the output expressions
// depend on are all present in d.
func (o *Outputter) CheckOutputVars(d *MapData) error {
	for _, v := range o.modelVariables {
		if _, ok := d.Data[v]; !ok {
			return fmt.Errorf("gtsmap: undefined variable name '%s'", v)
		}
	}
	return nil
}

// Results evaluates the configured output expressions over the variables in
// d, returning one array per output variable. Expressions are evaluated
// elementwise; a variable with fewer dimensions than the others in its
// expression is repeated across the leading dimensions, so expressions can
// combine time-resolved and static variables, as in "Ne - Ne0".
func (d *MapData) Results(o *Outputter) (map[string]*sparse.DenseArray, error) {
	if err := o.CheckOutputVars(d); err != nil {
		return nil, err
	}
	results := make(map[string]*sparse.DenseArray, len(o.outputVariables))
	for name, expStr := range o.outputVariables {
		expression, err := govaluate.NewEvaluableExpressionWithFunctions(expStr, o.outputFunctions)
		if err != nil {
			return nil, fmt.Errorf("gtsmap: output variable %s: %v", name, err)
		}
		vars := removeDuplicates(expression.Vars())
		if len(vars) == 0 {
			return nil, fmt.Errorf("gtsmap: output variable %s references no mapped variables", name)
		}
		var shape []int
		srcs := make(map[string]*sparse.DenseArray, len(vars))
		for _, v := range vars {
			data := d.Data[v].Data
			if len(data.Shape) > len(shape) {
				shape = data.Shape
			}
			srcs[v] = data
		}
		for _, v := range vars {
			if err := checkBroadcast(v, srcs[v].Shape, shape); err != nil {
				return nil, fmt.Errorf("gtsmap: output variable %s: %v", name, err)
			}
		}
		out := sparse.ZerosDense(shape...)
		params := make(map[string]interface{}, len(vars))
		for i := range out.Elements {
			for _, v := range vars {
				src := srcs[v]
				params[v] = src.Elements[i%len(src.Elements)]
			}
			r, err := expression.Evaluate(params)
			if err != nil {
				return nil, fmt.Errorf("gtsmap: evaluating output variable %s: %v", name, err)
			}
			rf, ok := r.(float64)
			if !ok {
				return nil, fmt.Errorf("gtsmap: output variable %s: expression yields %T, not a number", name, r)
			}
			out.Elements[i] = rf
		}
		results[name] = out
	}
	return results, nil
}

// checkBroadcast returns an error unless shape equals the trailing
// dimensions of want.
func checkBroadcast(name string, shape, want []int) error {
	if len(shape) > len(want) {
		return fmt.Errorf("variable %s has shape %v, which does not fit %v", name, shape, want)
	}
	offset := len(want) - len(shape)
	for i, s := range shape {
		if s != want[offset+i] {
			return fmt.Errorf("variable %s has shape %v, which does not fit %v", name, shape, want)
		}
	}
	return nil
}

// Output evaluates the output expressions, adds the results to d as new
// variables, and writes d to the Outputter's file.
func (o *Outputter) Output(d *MapData) error {
	results, err := d.Results(o)
	if err != nil {
		return err
	}
	for name, data := range results {
		dims, err := d.dimsForShape(data.Shape)
		if err != nil {
			return fmt.Errorf("gtsmap: output variable %s: %v", name, err)
		}
		d.AddVariable(name, dims, "derived: "+o.outputVariables[name], "", data)
	}
	f, err := os.Create(o.fileName)
	if err != nil {
		return fmt.Errorf("gtsmap: creating output file: %v", err)
	}
	if err := d.Write(f); err != nil {
		return err
	}
	return f.Close()
}

// dimsForShape matches an array shape to the netcdf dimensions of the
// mapped data file.
func (d *MapData) dimsForShape(shape []int) ([]string, error) {
	cfg := d.Config
	switch {
	case len(shape) == 4:
		return dims4d, nil
	case len(shape) == 3:
		return dims3d, nil
	case len(shape) == 1 && shape[0] == cfg.NBoundary:
		return []string{"boundary"}, nil
	}
	return nil, fmt.Errorf("no netcdf dimensions match shape %v", shape)
}
