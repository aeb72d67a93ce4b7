// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

/*Package interval implements interval-union sets of genomic coordinates, built
  from BED files or samtools-style region strings, for restricting a stream of
  variant records to a set of regions.
  Overlapping and touching intervals are merged, not tracked separately.
*/
package interval
