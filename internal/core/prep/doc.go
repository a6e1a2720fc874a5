// Package prep holds the numeric preprocessing steps that sit between the
// categorical encoder and the classifier
package prep
