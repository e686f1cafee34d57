/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package certificates

import tlscrv "github.com/fengmingdev/nexuskit/certificates/curves"

func (o *config) SetCurveList(c []tlscrv.Curves) {
	o.curveList = make([]tlscrv.Curves, 0)
	o.AddCurves(c...)
}

func (o *config) AddCurves(c ...tlscrv.Curves) {
	o.curveList = append(o.curveList, c...)
}

func (o *config) GetCurves() []tlscrv.Curves {
	var res = make([]tlscrv.Curves, 0)

	for _, i := range o.curveList {
		if tlscrv.Check(i.Uint16()) {
			res = append(res, i)
		}
	}

	return res
}
